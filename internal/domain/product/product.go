package product

import (
	"encoding/json"
	"errors"
	"strings"
)

const PlaceholderImage = "/images/placeholder.png"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidTitle    = errors.New("product title is required")
	ErrInvalidPrice    = errors.New("product price must be positive")
)

// Product is a catalog record as served by the backend. Details is kept as
// raw JSON so cart snapshots carry whatever metadata the backend attached.
type Product struct {
	ID               string          `json:"_id,omitempty"`
	Title            string          `json:"title"`
	ImageLink        string          `json:"imageLink,omitempty"`
	Brand            string          `json:"brand,omitempty"`
	Price            int64           `json:"price"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// Details is the subset of product metadata the storefront displays.
type Details struct {
	BasicInfo        string `json:"basicInfo,omitempty"`
	Sizes            string `json:"sizes,omitempty"`
	Measurements     string `json:"measurements,omitempty"`
	Material         string `json:"material,omitempty"`
	CareInstructions string `json:"careInstructions,omitempty"`
}

// ParsedDetails decodes the known detail fields. Unknown or malformed
// metadata yields zero values.
func (p Product) ParsedDetails() Details {
	var d Details
	if len(p.Details) == 0 {
		return d
	}
	_ = json.Unmarshal(p.Details, &d)
	return d
}

// Validate checks the fields an admin must fill in before creating a
// product.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrInvalidTitle
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Image returns the image link, or the placeholder when none is set.
func (p Product) Image() string {
	if p.ImageLink == "" {
		return PlaceholderImage
	}
	return p.ImageLink
}

// Update is the admin edit payload for an existing product. Zero fields are
// left unchanged by the backend.
type Update struct {
	Title   string   `json:"title,omitempty"`
	Price   int64    `json:"price,omitempty"`
	Details *Details `json:"details,omitempty"`
}

func (u Update) Validate() error {
	if u.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
