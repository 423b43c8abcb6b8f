package checkout

import "errors"

const (
	msgNoPaymentLink   = "Không nhận được link thanh toán từ server"
	msgOrderFailed     = "Có lỗi xảy ra khi tạo đơn hàng: "
	msgEmptyCart       = "Giỏ hàng của bạn đang trống"
	msgSubmitting      = "Đang xử lý đơn hàng, vui lòng chờ"
	msgInvalidCheckout = "Vui lòng kiểm tra lại thông tin giao hàng"
)

// backendMessager is implemented by errors that carry the backend's own
// "message" field.
type backendMessager interface {
	BackendMessage() string
}

// UserMessage returns the Vietnamese text shown to the customer for a
// checkout error.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return msgInvalidCheckout
	case errors.Is(err, ErrEmptyCart):
		return msgEmptyCart
	case errors.Is(err, ErrSubmitInProgress):
		return msgSubmitting
	case errors.Is(err, ErrNoPaymentLink):
		return msgNoPaymentLink
	case errors.Is(err, ErrPaymentRequest):
		return msgOrderFailed + causeMessage(err)
	}
	return err.Error()
}

func causeMessage(err error) string {
	var m backendMessager
	if errors.As(err, &m) && m.BackendMessage() != "" {
		return m.BackendMessage()
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if causes := joined.Unwrap(); len(causes) > 1 {
			return causes[len(causes)-1].Error()
		}
	}
	return err.Error()
}
