package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/domain/product"
	"github.com/example/caprieux-storefront/internal/infrastructure/storage"
	"github.com/example/caprieux-storefront/internal/infrastructure/store"
)

const (
	AggregateType     = "Cart"
	DefaultRentalDays = 3

	// persistVersion is written into the stored envelope so a future layout
	// change can be detected on load.
	persistVersion = 0
)

var ErrInvalidProduct = errors.New("product_id is required")

// LineItem is one product in the cart. The product fields are a snapshot
// taken when the product was first added.
type LineItem struct {
	ProductID        string          `json:"_id"`
	Title            string          `json:"title"`
	ImageLink        string          `json:"imageLink,omitempty"`
	Brand            string          `json:"brand,omitempty"`
	Price            int64           `json:"price"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	Details          json.RawMessage `json:"details,omitempty"`
	Quantity         int             `json:"quantity"`
	RentalDays       int             `json:"rentalDays"`
}

// LineTotal is price × quantity.
func (li LineItem) LineTotal() int64 {
	return li.Price * int64(li.Quantity)
}

// SnapshotItem is the {productId, quantity} pair sent at checkout.
type SnapshotItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type persistedCart struct {
	State struct {
		Items []LineItem `json:"items"`
	} `json:"state"`
	Version int `json:"version"`
}

// Store is the persisted shopping cart. Every mutation is written to the
// key-value store before it returns; reads only touch memory.
type Store struct {
	mu      sync.RWMutex
	items   []LineItem
	kv      storage.KeyValueStore
	key     string
	journal store.Journal
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithJournal records cart events in the given journal.
func WithJournal(j store.Journal) Option {
	return func(s *Store) { s.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Named("cart")
		}
	}
}

// WithKey overrides the storage key (default "cart-storage").
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// Open loads the cart persisted under the store's key. A missing key yields
// an empty cart.
func Open(ctx context.Context, kv storage.KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		key:    storage.CartKey,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.items = items
	return s, nil
}

// Reload replaces the in-memory cart with what is currently persisted. Used
// when another process may have written the same key.
func (s *Store) Reload(ctx context.Context) error {
	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

func (s *Store) load(ctx context.Context) ([]LineItem, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []LineItem{}, nil
	}
	if errors.Is(err, storage.ErrSealedValue) {
		s.logger.Warn("discarding sealed cart state", zap.String("key", s.key), zap.Error(err))
		return []LineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var persisted persistedCart
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("discarding unreadable cart state", zap.String("key", s.key), zap.Error(err))
		return []LineItem{}, nil
	}
	return normalize(persisted.State.Items), nil
}

// normalize restores the cart invariants on loaded data: one line per
// product, quantity at least 1, rental days defaulted.
func normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.RentalDays < 1 {
			item.RentalDays = DefaultRentalDays
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

func (s *Store) persist(ctx context.Context, items []LineItem) error {
	var persisted persistedCart
	persisted.State.Items = items
	persisted.Version = persistVersion

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// mutate applies fn to a copy of the items and commits the result only after
// it has been persisted, so a failed write leaves memory untouched. fn
// returns the journal event, or nil for a no-op.
func (s *Store) mutate(ctx context.Context, fn func(items []LineItem) ([]LineItem, string, any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, eventType, event := fn(cloneItems(s.items))
	if event == nil {
		return nil
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.items = next
	s.record(ctx, eventType, event)
	return nil
}

func (s *Store) record(ctx context.Context, eventType string, data any) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Append(ctx, s.key, AggregateType, eventType, data); err != nil {
		s.logger.Warn("failed to record cart event", zap.String("event_type", eventType), zap.Error(err))
	}
}

// AddItem adds one unit of p with the default rental period.
func (s *Store) AddItem(ctx context.Context, p product.Product) error {
	return s.AddItemForDays(ctx, p, DefaultRentalDays)
}

// AddItemForDays adds one unit of p. A product already in the cart gets its
// quantity incremented and keeps its original snapshot and rental days.
func (s *Store) AddItemForDays(ctx context.Context, p product.Product, rentalDays int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if rentalDays < 1 {
		rentalDays = DefaultRentalDays
	}

	return s.mutate(ctx, func(items []LineItem) ([]LineItem, string, any) {
		event := ItemAddedToCart{
			ProductID:  p.ID,
			Quantity:   1,
			RentalDays: rentalDays,
			Price:      p.Price,
			AddedAt:    s.now(),
		}
		if i := indexOf(items, p.ID); i >= 0 {
			items[i].Quantity++
			event.Quantity = items[i].Quantity
			event.RentalDays = items[i].RentalDays
			event.Price = items[i].Price
			return items, EventItemAdded, event
		}
		items = append(items, LineItem{
			ProductID:        p.ID,
			Title:            p.Title,
			ImageLink:        p.ImageLink,
			Brand:            p.Brand,
			Price:            p.Price,
			ShortDescription: p.ShortDescription,
			Details:          append(json.RawMessage(nil), p.Details...),
			Quantity:         1,
			RentalDays:       rentalDays,
		})
		return items, EventItemAdded, event
	})
}

// RemoveItem deletes the line for productID regardless of its quantity.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, string, any) {
		i := indexOf(items, productID)
		if i < 0 {
			return items, "", nil
		}
		items = append(items[:i], items[i+1:]...)
		return items, EventItemRemoved, ItemRemovedFromCart{ProductID: productID, RemovedAt: s.now()}
	})
}

func (s *Store) IncrementQuantity(ctx context.Context, productID string) error {
	return s.changeQuantity(ctx, productID, 1)
}

// DecrementQuantity lowers the quantity by one. A line at quantity 1 is left
// as is; removal is a separate action.
func (s *Store) DecrementQuantity(ctx context.Context, productID string) error {
	return s.changeQuantity(ctx, productID, -1)
}

func (s *Store) changeQuantity(ctx context.Context, productID string, delta int) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, string, any) {
		i := indexOf(items, productID)
		if i < 0 || items[i].Quantity+delta < 1 {
			return items, "", nil
		}
		items[i].Quantity += delta
		return items, EventQuantityChanged, ItemQuantityChanged{
			ProductID: productID,
			Quantity:  items[i].Quantity,
			Delta:     delta,
			ChangedAt: s.now(),
		}
	})
}

// Clear empties the cart. It does not touch session state.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, string, any) {
		return []LineItem{}, EventCartCleared, CartCleared{ItemCount: countItems(items), ClearedAt: s.now()}
	})
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Item returns the line for productID.
func (s *Store) Item(productID string) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.items, productID); i >= 0 {
		return s.items[i], true
	}
	return LineItem{}, false
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// ItemCount is the sum of all quantities (badge count).
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countItems(s.items)
}

// Subtotal is the sum of price × quantity over all lines.
func (s *Store) Subtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subtotal int64
	for _, item := range s.items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// Summary is the lines and their totals read under one lock.
type Summary struct {
	Items     []LineItem
	ItemCount int
	Subtotal  int64
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Items: cloneItems(s.items), ItemCount: countItems(s.items)}
	for _, item := range s.items {
		sum.Subtotal += item.LineTotal()
	}
	return sum
}

// Total is subtotal - discount + shipping. Shipping policy belongs to the
// caller.
func (s *Store) Total(discount, shipping int64) int64 {
	return s.Subtotal() - discount + shipping
}

// Snapshot returns the {productId, quantity} pairs for a checkout request.
func (s *Store) Snapshot() []SnapshotItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]SnapshotItem, 0, len(s.items))
	for _, item := range s.items {
		snapshot = append(snapshot, SnapshotItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return snapshot
}

func indexOf(items []LineItem, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func countItems(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
