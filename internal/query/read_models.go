package query

import (
	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/product"
)

// CartLineReadModel is one cart line as displayed.
type CartLineReadModel struct {
	ProductID  string `json:"productId"`
	Title      string `json:"title"`
	Brand      string `json:"brand,omitempty"`
	ImageLink  string `json:"imageLink"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
	RentalDays int    `json:"rentalDays"`
	LineTotal  int64  `json:"lineTotal"`
}

// CartReadModel is the cart summary: lines plus the derived totals.
type CartReadModel struct {
	Items                    []CartLineReadModel `json:"items"`
	ItemCount                int                 `json:"itemCount"`
	Quote                    checkout.Quote      `json:"quote"`
	FreeShipping             bool                `json:"freeShipping"`
	RemainingForFreeShipping int64               `json:"remainingForFreeShipping"`
}

func (c CartReadModel) IsEmpty() bool {
	return len(c.Items) == 0
}

func cartLine(li cart.LineItem) CartLineReadModel {
	return CartLineReadModel{
		ProductID:  li.ProductID,
		Title:      li.Title,
		Brand:      li.Brand,
		ImageLink:  product.Product{ImageLink: li.ImageLink}.Image(),
		Price:      li.Price,
		Quantity:   li.Quantity,
		RentalDays: li.RentalDays,
		LineTotal:  li.LineTotal(),
	}
}
