// Package wishlist tracks per-user product wishlists.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
)

const table = "wishlists"

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	records backend.RecordStore
}

func NewService(records backend.RecordStore) *Service {
	return &Service{records: records}
}

// Add is idempotent: wishing for a product twice keeps a single entry.
func (s *Service) Add(ctx context.Context, userID, productID string) (*Entry, error) {
	if userID == "" || productID == "" {
		return nil, errors.New("wishlist: user id and product id are required")
	}
	q := backend.Query{}.Eq("user_id", userID).Eq("product_id", productID)
	existing, err := backend.SelectOne(ctx, s.records, table, q)
	if err == nil {
		var e Entry
		if err := backend.Decode(existing, &e); err != nil {
			return nil, err
		}
		return &e, nil
	}
	if !errors.Is(err, backend.ErrNoRows) {
		return nil, fmt.Errorf("wishlist lookup: %w", err)
	}

	row, err := s.records.Insert(ctx, table, backend.Record{
		"user_id":    userID,
		"product_id": productID,
	})
	if err != nil {
		return nil, fmt.Errorf("wishlist add: %w", err)
	}
	var e Entry
	if err := backend.Decode(row, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Remove deletes the entry if present. Removing an absent product is not
// an error.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	q := backend.Query{}.Eq("user_id", userID).Eq("product_id", productID)
	if err := s.records.Delete(ctx, table, q); err != nil {
		return fmt.Errorf("wishlist remove: %w", err)
	}
	return nil
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	q := backend.Query{}.Eq("user_id", userID).OrderBy("created_at", true)
	rows, err := s.records.Select(ctx, table, q)
	if err != nil {
		return nil, fmt.Errorf("wishlist list: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if err := backend.Decode(row, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Contains reports whether the product is on the user's wishlist.
func (s *Service) Contains(ctx context.Context, userID, productID string) (bool, error) {
	q := backend.Query{}.Eq("user_id", userID).Eq("product_id", productID)
	_, err := backend.SelectOne(ctx, s.records, table, q)
	if errors.Is(err, backend.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
