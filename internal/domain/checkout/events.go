package checkout

import (
	"time"

	"github.com/example/caprieux-storefront/internal/domain/cart"
)

const (
	AggregateType = "Checkout"

	EventCheckoutInitiated  = "CheckoutInitiated"
	EventPaymentLinkCreated = "PaymentLinkCreated"
	EventPaymentLinkFailed  = "PaymentLinkFailed"
	EventPaymentReturned    = "PaymentReturned"
)

type CheckoutInitiated struct {
	AttemptID   string              `json:"attempt_id"`
	Items       []cart.SnapshotItem `json:"items"`
	Subtotal    int64               `json:"subtotal"`
	InitiatedAt time.Time           `json:"initiated_at"`
}

type PaymentLinkCreated struct {
	AttemptID   string    `json:"attempt_id"`
	CheckoutURL string    `json:"checkout_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentLinkFailed struct {
	AttemptID string    `json:"attempt_id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}

type PaymentReturned struct {
	OrderCode   string    `json:"order_code,omitempty"`
	State       State     `json:"state"`
	WebhookSent bool      `json:"webhook_sent"`
	CartCleared bool      `json:"cart_cleared"`
	ReturnedAt  time.Time `json:"returned_at"`
}
