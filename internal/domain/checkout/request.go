package checkout

import "github.com/example/caprieux-storefront/internal/domain/cart"

// Recipient is the delivery form filled in at checkout.
type Recipient struct {
	FullName    string `json:"fullName" validate:"notblank"`
	PhoneNumber string `json:"phoneNumber" validate:"notblank,vnphone"`
	Address     string `json:"address" validate:"notblank"`
}

// Request is the body of the create-payment-link call. Items is the cart
// snapshot taken at submission.
type Request struct {
	FullName    string              `json:"fullName"`
	PhoneNumber string              `json:"phoneNumber"`
	Address     string              `json:"address"`
	Items       []cart.SnapshotItem `json:"items"`
}

func NewRequest(r Recipient, items []cart.SnapshotItem) Request {
	return Request{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		Items:       items,
	}
}
