package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/infrastructure/store"
)

const (
	notAvailable          = "N/A"
	DefaultFailureCode    = "PAYMENT_FAILED"
	DefaultFailureMessage = "Thanh toán không thành công"
)

var ErrUnknownOutcome = errors.New("unknown payment outcome")

// Outcome is which return route the provider redirected to.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// WebhookPayload is posted to the backend on return: {orderCode, cancel} for
// a success, {code, orderCode} for a failure. Absent query values are sent as
// null.
type WebhookPayload struct {
	OrderCode *string
	Cancel    *string
	Code      *string
	failure   bool
}

func (p WebhookPayload) MarshalJSON() ([]byte, error) {
	if p.failure {
		return json.Marshal(struct {
			Code      *string `json:"code"`
			OrderCode *string `json:"orderCode"`
		}{p.Code, p.OrderCode})
	}
	return json.Marshal(struct {
		OrderCode *string `json:"orderCode"`
		Cancel    *string `json:"cancel"`
	}{p.OrderCode, p.Cancel})
}

// OrderDetails is shown after a successful payment.
type OrderDetails struct {
	OrderID   string `json:"orderId"`
	OrderCode string `json:"orderCode"`
	Amount    string `json:"amount"`
}

// ErrorDetails is shown after a failed payment.
type ErrorDetails struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	OrderID   string `json:"orderId,omitempty"`
}

// Return is the parsed redirect.
type Return struct {
	Outcome Outcome        `json:"outcome"`
	State   State          `json:"state"`
	Webhook WebhookPayload `json:"webhook"`
	Order   *OrderDetails  `json:"order,omitempty"`
	Error   *ErrorDetails  `json:"error,omitempty"`
}

func param(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return notAvailable
}

// ParseReturn maps the provider's redirect query to the webhook payload and
// what the customer should see. It has no side effects.
func ParseReturn(outcome Outcome, q url.Values) (Return, error) {
	switch outcome {
	case OutcomeSuccess:
		r := Return{
			Outcome: outcome,
			State:   StateReturnedSuccess,
			Webhook: WebhookPayload{OrderCode: param(q, "orderCode"), Cancel: param(q, "cancel")},
		}
		orderID, orderCode := q.Get("orderId"), q.Get("orderCode")
		if orderID != "" || orderCode != "" {
			r.Order = &OrderDetails{
				OrderID:   firstNonEmpty(orderID, orderCode),
				OrderCode: firstNonEmpty(orderCode, orderID),
				Amount:    firstNonEmpty(q.Get("amount")),
			}
		}
		return r, nil

	case OutcomeFailure:
		r := Return{
			Outcome: outcome,
			State:   StateReturnedFailure,
			Webhook: WebhookPayload{OrderCode: param(q, "orderCode"), Code: param(q, "code"), failure: true},
		}
		errorCode, message := q.Get("errorCode"), q.Get("message")
		if errorCode != "" || message != "" {
			r.Error = &ErrorDetails{
				ErrorCode: errorCode,
				Message:   message,
				OrderID:   q.Get("orderId"),
			}
			if r.Error.ErrorCode == "" {
				r.Error.ErrorCode = DefaultFailureCode
			}
			if r.Error.Message == "" {
				r.Error.Message = DefaultFailureMessage
			}
		}
		return r, nil
	}
	return Return{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
}

// WebhookSender notifies the backend about a return.
type WebhookSender interface {
	PostWebhook(ctx context.Context, payload WebhookPayload) error
}

// CartClearer empties the cart after a paid order.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Result is what Handle did.
type Result struct {
	Return
	WebhookSent  bool   `json:"webhookSent"`
	WebhookError string `json:"webhookError,omitempty"`
	CartCleared  bool   `json:"cartCleared"`
}

// Reconciler runs the side effects of a payment return.
type Reconciler struct {
	webhook WebhookSender
	cart    CartClearer
	journal store.Journal
	logger  *zap.Logger
	now     func() time.Time
}

type ReconcilerOption func(*Reconciler)

func WithReconcilerJournal(j store.Journal) ReconcilerOption {
	return func(r *Reconciler) { r.journal = j }
}

func WithReconcilerLogger(l *zap.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l.Named("reconcile")
		}
	}
}

func NewReconciler(webhook WebhookSender, c CartClearer, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		webhook: webhook,
		cart:    c,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle posts the webhook once and clears the cart on success. A webhook
// failure is logged and reported in the result; it never stops the cart from
// being cleared. Every call repeats both steps.
func (r *Reconciler) Handle(ctx context.Context, outcome Outcome, q url.Values) (Result, error) {
	ret, err := ParseReturn(outcome, q)
	if err != nil {
		return Result{}, err
	}
	res := Result{Return: ret}

	if err := r.webhook.PostWebhook(ctx, ret.Webhook); err != nil {
		res.WebhookError = err.Error()
		r.logger.Warn("webhook post failed", zap.String("outcome", string(outcome)), zap.Error(err))
	} else {
		res.WebhookSent = true
	}

	if ret.State == StateReturnedSuccess {
		if err := r.cart.Clear(ctx); err != nil {
			r.recordReturn(ctx, res)
			return res, fmt.Errorf("clear cart after payment: %w", err)
		}
		res.CartCleared = true
	}

	r.recordReturn(ctx, res)
	return res, nil
}

func (r *Reconciler) recordReturn(ctx context.Context, res Result) {
	if r.journal == nil {
		return
	}
	var orderCode string
	if res.Webhook.OrderCode != nil {
		orderCode = *res.Webhook.OrderCode
	}
	aggregateID := orderCode
	if aggregateID == "" {
		aggregateID = "unknown-order"
	}
	event := PaymentReturned{
		OrderCode:   orderCode,
		State:       res.State,
		WebhookSent: res.WebhookSent,
		CartCleared: res.CartCleared,
		ReturnedAt:  r.now(),
	}
	if _, err := r.journal.Append(ctx, aggregateID, AggregateType, EventPaymentReturned, event); err != nil {
		r.logger.Warn("failed to record payment return", zap.Error(err))
	}
}
