package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/order"
	"github.com/example/caprieux-storefront/internal/domain/product"
	"github.com/example/caprieux-storefront/internal/domain/session"
)

// Catalog is the product side of the REST client.
type Catalog interface {
	ListProducts(ctx context.Context, params client.ListParams) ([]product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
}

// Orders is the admin order side of the REST client.
type Orders interface {
	ListOrders(ctx context.Context) ([]order.Order, error)
}

type Handler struct {
	catalog Catalog
	orders  Orders
	cart    *cart.Store
	session *session.Store
	policy  checkout.Policy
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Handler)

func WithPolicy(p checkout.Policy) Option {
	return func(h *Handler) { h.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("query")
		}
	}
}

// WithClock overrides the time source used for export file names.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(catalog Catalog, orders Orders, cartStore *cart.Store, sessionStore *session.Store, opts ...Option) *Handler {
	h := &Handler{
		catalog: catalog,
		orders:  orders,
		cart:    cartStore,
		session: sessionStore,
		policy:  checkout.DefaultPolicy(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cart
func (h *Handler) GetCart() CartReadModel {
	sum := h.cart.Summary()
	lines := make([]CartLineReadModel, 0, len(sum.Items))
	for _, li := range sum.Items {
		lines = append(lines, cartLine(li))
	}

	quote := h.policy.Quote(sum.Subtotal, 0)
	return CartReadModel{
		Items:                    lines,
		ItemCount:                sum.ItemCount,
		Quote:                    quote,
		FreeShipping:             quote.FreeShipping(),
		RemainingForFreeShipping: h.policy.RemainingForFreeShipping(sum.Subtotal),
	}
}

// Products
func (h *Handler) ListProducts(ctx context.Context, params client.ListParams) ([]product.Product, error) {
	products, err := h.catalog.ListProducts(ctx, params)
	if err != nil {
		h.logger.Warn("failed to list products", zap.String("search_term", params.SearchTerm), zap.Error(err))
		return nil, err
	}
	return products, nil
}

func (h *Handler) GetProduct(ctx context.Context, id string) (product.Product, error) {
	return h.catalog.GetProduct(ctx, id)
}

// Orders

// ListAllOrders returns all orders (for admin use)
func (h *Handler) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	if err := h.session.RequireAdmin(); err != nil {
		return nil, err
	}
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.logger.Warn("failed to list orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}
