package mocks

import (
	"context"
	"sync"

	"github.com/example/caprieux-storefront/internal/domain/checkout"
)

// MockPaymentGateway is a mock implementation of checkout.PaymentGateway
type MockPaymentGateway struct {
	mu sync.Mutex

	// For tracking calls in tests
	Requests    []checkout.Request
	CheckoutURL string
	Err         error
	// Block, when set, is waited on before answering
	Block chan struct{}
}

func NewMockPaymentGateway(checkoutURL string) *MockPaymentGateway {
	return &MockPaymentGateway{CheckoutURL: checkoutURL}
}

func (m *MockPaymentGateway) CreatePaymentLink(ctx context.Context, req checkout.Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.CheckoutURL, nil
}

// Calls returns how many payment links were requested
func (m *MockPaymentGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockNavigator records the URLs it was asked to open
type MockNavigator struct {
	mu   sync.Mutex
	URLs []string
	Err  error
}

func NewMockNavigator() *MockNavigator {
	return &MockNavigator{}
}

func (m *MockNavigator) Navigate(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.URLs = append(m.URLs, url)
	return m.Err
}

// MockWebhookSender is a mock implementation of checkout.WebhookSender
type MockWebhookSender struct {
	mu       sync.Mutex
	Payloads []checkout.WebhookPayload
	Err      error
}

func NewMockWebhookSender() *MockWebhookSender {
	return &MockWebhookSender{}
}

func (m *MockWebhookSender) PostWebhook(ctx context.Context, payload checkout.WebhookPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads = append(m.Payloads, payload)
	return m.Err
}

// Calls returns how many webhooks were posted
func (m *MockWebhookSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}
