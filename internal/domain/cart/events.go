package cart

import "time"

const (
	EventItemAdded       = "ItemAddedToCart"
	EventItemRemoved     = "ItemRemovedFromCart"
	EventQuantityChanged = "ItemQuantityChanged"
	EventCartCleared     = "CartCleared"
)

type ItemAddedToCart struct {
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	RentalDays int       `json:"rental_days"`
	Price      int64     `json:"price"`
	AddedAt    time.Time `json:"added_at"`
}

type ItemRemovedFromCart struct {
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type ItemQuantityChanged struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Delta     int       `json:"delta"`
	ChangedAt time.Time `json:"changed_at"`
}

type CartCleared struct {
	ItemCount int       `json:"item_count"`
	ClearedAt time.Time `json:"cleared_at"`
}
