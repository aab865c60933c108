// Package cart manages one client's shopping cart: ordered line items with
// quantity merging, derived totals, and write-through persistence to a
// key-value store. The in-memory state is the source of truth; the durable
// copy is best effort.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/axelsjewelry/storefront/internal/kvstore"
)

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Store holds the cart for one client session. At most one item per ID;
// insertion order is preserved for display.
type Store struct {
	mu     sync.Mutex
	items  []Item
	kv     kvstore.Store
	key    string
	logger *log.Logger
}

// NewStore hydrates the cart from the value persisted under key. A missing
// or corrupt value yields an empty cart, never an error.
func NewStore(kv kvstore.Store, key string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{kv: kv, key: key, logger: logger}

	raw, err := kv.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Printf("cart: load %q: %v", key, err)
		}
		return s
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Printf("cart: corrupt persisted cart %q, starting empty: %v", key, err)
		return s
	}
	s.items = items
	return s
}

// Add merges quantities when an item with the same ID is already present,
// otherwise appends at the end.
func (s *Store) Add(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += item.Quantity
			s.persistLocked()
			return
		}
	}
	s.items = append(s.items, item)
	s.persistLocked()
}

// Remove deletes the matching item. Removing an absent ID is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// UpdateQuantity replaces the item's quantity. A quantity of zero or less
// removes the item; an absent ID is a no-op and never creates an entry.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity <= 0 {
		s.removeLocked(id)
		return
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			s.persistLocked()
			return
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, it := range s.items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

func (s *Store) removeLocked(id string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persistLocked()
			return
		}
	}
}

// persistLocked writes through after every mutation. Failures are logged and
// swallowed: the in-memory cart stays authoritative for the session.
func (s *Store) persistLocked() {
	b, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Printf("cart: encode: %v", err)
		return
	}
	if s.items == nil {
		b = []byte("[]")
	}
	if err := s.kv.Set(context.Background(), s.key, string(b)); err != nil {
		s.logger.Printf("cart: persist %q: %v", s.key, err)
	}
}
