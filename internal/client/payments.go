package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/caprieux-storefront/internal/domain/checkout"
)

type paymentLinkResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// CreatePaymentLink asks the backend for a hosted payment session. An empty
// URL with a nil error means the backend answered without one.
func (c *Client) CreatePaymentLink(ctx context.Context, req checkout.Request) (string, error) {
	var resp paymentLinkResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments/create-payment-link", "/api/payments/create-payment-link", nil, req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.CheckoutURL), nil
}

func (c *Client) PostWebhook(ctx context.Context, payload checkout.WebhookPayload) error {
	return c.do(ctx, http.MethodPost, "/api/payments/webhook", "/api/payments/webhook", nil, payload, nil)
}
