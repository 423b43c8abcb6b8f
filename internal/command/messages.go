package command

import (
	"errors"

	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
)

const (
	msgLoginFailed    = "Đăng nhập không thành công. Vui lòng kiểm tra lại thông tin."
	msgRegisterFailed = "Đăng ký không thành công. Vui lòng kiểm tra lại thông tin."
	msgPasswordShort  = "Mật khẩu phải có ít nhất 6 ký tự"
	msgPasswordMatch  = "Mật khẩu xác nhận không khớp"
	msgForbidden      = "Bạn không có quyền thực hiện thao tác này"
)

// LoginMessage is the text shown when Login fails.
func LoginMessage(err error) string {
	if err == nil {
		return ""
	}
	return msgLoginFailed
}

// RegisterMessage is the text shown when Register fails. The backend's own
// message wins when it sent one.
func RegisterMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordMismatch):
		return msgPasswordMatch
	case errors.Is(err, ErrPasswordTooShort):
		return msgPasswordShort
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return msgRegisterFailed
}

// Message maps any command error to customer-facing text.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return msgForbidden
	case errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrPasswordTooShort):
		return RegisterMessage(err)
	}
	return checkout.UserMessage(err)
}
