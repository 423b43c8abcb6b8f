package command

import (
	"net/url"

	"github.com/example/caprieux-storefront/internal/domain/checkout"
)

// Cart Commands
type AddToCart struct {
	ProductID  string `json:"product_id"`
	RentalDays int    `json:"rental_days"`
}

type RemoveFromCart struct {
	ProductID string `json:"product_id"`
}

type IncrementQuantity struct {
	ProductID string `json:"product_id"`
}

type DecrementQuantity struct {
	ProductID string `json:"product_id"`
}

type ClearCart struct{}

// Auth Commands
type Login struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Register struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type SignOut struct{}

// Checkout Commands
type Checkout struct {
	Recipient checkout.Recipient `json:"recipient"`
}

type CompletePayment struct {
	Outcome checkout.Outcome `json:"outcome"`
	Query   url.Values       `json:"query"`
}

// Admin Product Commands
type CreateProduct struct {
	Title            string `json:"title"`
	Brand            string `json:"brand"`
	Price            int64  `json:"price"`
	ImageLink        string `json:"image_link"`
	ShortDescription string `json:"short_description"`
	Sizes            string `json:"sizes"`
}

type UpdateProduct struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Sizes     string `json:"sizes"`
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}
