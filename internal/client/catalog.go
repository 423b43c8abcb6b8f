package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/caprieux-storefront/internal/domain/product"
)

// ListParams filters the product list. Zero values are omitted.
type ListParams struct {
	SearchTerm string
	Limit      int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(p.SearchTerm); s != "" {
		q.Set("searchTerm", s)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

func (c *Client) ListProducts(ctx context.Context, params ListParams) ([]product.Product, error) {
	var products []product.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", "/api/products", params.query(), nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []product.Product{}
	}
	return products, nil
}

// GetProduct fetches one product. A 404 is reported as
// product.ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, id string) (product.Product, error) {
	var p product.Product
	err := c.do(ctx, http.MethodGet, "/api/products/:id", productPath(id), nil, nil, &p)
	if StatusCode(err) == http.StatusNotFound {
		return product.Product{}, fmt.Errorf("%w: %s: %w", product.ErrProductNotFound, id, err)
	}
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	var created product.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", "/api/products", nil, p, &created); err != nil {
		return product.Product{}, err
	}
	return created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, update product.Update) (product.Product, error) {
	var updated product.Product
	if err := c.do(ctx, http.MethodPut, "/api/products/:id", productPath(id), nil, update, &updated); err != nil {
		return product.Product{}, err
	}
	return updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/:id", productPath(id), nil, nil, nil)
}

func productPath(id string) string {
	return "/api/products/" + url.PathEscape(id)
}
