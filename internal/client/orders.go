package client

import (
	"context"
	"net/http"

	"github.com/example/caprieux-storefront/internal/domain/order"
)

// ListOrders returns every order. The backend requires an admin token.
func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", "/api/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}
