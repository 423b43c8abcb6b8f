package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

var ErrNoOrders = errors.New("no orders to export")

// ProductRef is the order's product. The backend sends either the product
// title as a string or the populated product document.
type ProductRef struct {
	ID    string
	Title string
}

func (p *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ProductRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*p = ProductRef{Title: title}
		return nil
	}
	var doc struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = ProductRef{ID: doc.ID, Title: doc.Title}
	return nil
}

func (p ProductRef) MarshalJSON() ([]byte, error) {
	if p.ID == "" {
		return json.Marshal(p.Title)
	}
	return json.Marshal(struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}{p.ID, p.Title})
}

// Code is the payment order code. The backend sends it as a number, older
// records carry it as a string.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

func (c Code) String() string {
	return string(c)
}

// Order is one order as listed by the admin API.
type Order struct {
	ID          string      `json:"_id"`
	OrderCode   Code        `json:"orderCode"`
	FullName    string      `json:"fullName"`
	PhoneNumber string      `json:"phoneNumber"`
	Address     string      `json:"address"`
	Product     *ProductRef `json:"product,omitempty"`
	Quantity    int         `json:"quantity"`
	Amount      int64       `json:"amount"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ProductName is the product title, or "-" when the order has none.
func (o Order) ProductName() string {
	if o.Product == nil || o.Product.Title == "" {
		return "-"
	}
	return o.Product.Title
}

func (o Order) IsPaid() bool {
	return o.Status == StatusPaid
}
