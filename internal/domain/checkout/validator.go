package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	CodeRequired      = "REQUIRED"
	CodeInvalidFormat = "INVALID_FORMAT"

	FieldFullName    = "fullName"
	FieldPhoneNumber = "phoneNumber"
	FieldAddress     = "address"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

var messages = map[string]map[string]string{
	FieldFullName:    {CodeRequired: "Vui lòng nhập họ tên"},
	FieldPhoneNumber: {CodeRequired: "Vui lòng nhập số điện thoại", CodeInvalidFormat: "Số điện thoại không hợp lệ"},
	FieldAddress:     {CodeRequired: "Vui lòng nhập địa chỉ"},
}

// FieldError is one failed form field.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors maps form field name to its error. Empty means valid.
type FieldErrors map[string]FieldError

func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// ValidationError wraps FieldErrors so it can travel as an error.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name].Code)
	}
	return "invalid checkout form: " + strings.Join(parts, ", ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		// The format check runs on the raw value; surrounding spaces fail it.
		_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks the checkout form and returns one error per failing field.
func Validate(r Recipient) FieldErrors {
	errs := FieldErrors{}

	err := formValidator().Struct(r)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs
	}
	for _, fe := range verrs {
		code := CodeInvalidFormat
		if fe.Tag() == "notblank" {
			code = CodeRequired
		}
		errs[fe.Field()] = FieldError{Code: code, Message: messages[fe.Field()][code]}
	}
	return errs
}
