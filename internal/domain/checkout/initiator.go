package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/infrastructure/store"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInProgress = errors.New("checkout already in progress")
	ErrPaymentRequest   = errors.New("payment request failed")
	ErrNoPaymentLink    = errors.New("no payment link received")
	ErrNavigation       = errors.New("could not open checkout page")
)

// PaymentGateway creates a hosted payment session and returns its URL. An
// empty URL with a nil error means the backend answered without a link.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req Request) (string, error)
}

// Navigator hands the customer over to the hosted payment page.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// CartReader is the part of the cart the initiator needs.
type CartReader interface {
	Snapshot() []cart.SnapshotItem
	Subtotal() int64
}

// Initiator submits the checkout form and hands off to the payment provider.
// It never mutates the cart.
type Initiator struct {
	gateway    PaymentGateway
	navigator  Navigator
	cart       CartReader
	journal    store.Journal
	logger     *zap.Logger
	now        func() time.Time
	submitting atomic.Bool
}

type InitiatorOption func(*Initiator)

func WithInitiatorJournal(j store.Journal) InitiatorOption {
	return func(i *Initiator) { i.journal = j }
}

func WithInitiatorLogger(l *zap.Logger) InitiatorOption {
	return func(i *Initiator) {
		if l != nil {
			i.logger = l.Named("checkout")
		}
	}
}

func NewInitiator(gateway PaymentGateway, navigator Navigator, c CartReader, opts ...InitiatorOption) *Initiator {
	i := &Initiator{
		gateway:   gateway,
		navigator: navigator,
		cart:      c,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Submitting reports whether a submission is in flight.
func (i *Initiator) Submitting() bool {
	return i.submitting.Load()
}

// Submit validates the form, requests a payment link for the current cart
// and navigates to it. Only one submission runs at a time; a second caller
// gets ErrSubmitInProgress.
func (i *Initiator) Submit(ctx context.Context, recipient Recipient) (*Attempt, error) {
	if !i.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer i.submitting.Store(false)

	items := i.cart.Snapshot()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if errs := Validate(recipient); !errs.Valid() {
		return nil, &ValidationError{Fields: errs}
	}

	attempt := newAttempt(i.now())
	i.record(ctx, attempt.ID, EventCheckoutInitiated, CheckoutInitiated{
		AttemptID:   attempt.ID,
		Items:       items,
		Subtotal:    i.cart.Subtotal(),
		InitiatedAt: attempt.CreatedAt,
	})

	url, err := i.gateway.CreatePaymentLink(ctx, NewRequest(recipient, items))
	if err != nil {
		i.logger.Warn("payment link request failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
		i.record(ctx, attempt.ID, EventPaymentLinkFailed, PaymentLinkFailed{AttemptID: attempt.ID, Reason: err.Error(), FailedAt: i.now()})
		return nil, fmt.Errorf("%w: %w", ErrPaymentRequest, err)
	}
	if url == "" {
		i.record(ctx, attempt.ID, EventPaymentLinkFailed, PaymentLinkFailed{AttemptID: attempt.ID, Reason: ErrNoPaymentLink.Error(), FailedAt: i.now()})
		return nil, ErrNoPaymentLink
	}

	attempt.CheckoutURL = url
	if err := attempt.Transition(StateAwaitingReturn); err != nil {
		return nil, err
	}
	i.record(ctx, attempt.ID, EventPaymentLinkCreated, PaymentLinkCreated{AttemptID: attempt.ID, CheckoutURL: url, CreatedAt: i.now()})
	i.logger.Info("payment link created", zap.String("attempt_id", attempt.ID), zap.Int("lines", len(items)))

	if i.navigator != nil {
		if err := i.navigator.Navigate(ctx, url); err != nil {
			return attempt, fmt.Errorf("%w: %w", ErrNavigation, err)
		}
	}
	return attempt, nil
}

func (i *Initiator) record(ctx context.Context, attemptID, eventType string, data any) {
	if i.journal == nil {
		return
	}
	if _, err := i.journal.Append(ctx, attemptID, AggregateType, eventType, data); err != nil {
		i.logger.Warn("failed to record checkout event", zap.String("event_type", eventType), zap.Error(err))
	}
}
