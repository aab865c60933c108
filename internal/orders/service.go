// Package orders owns checkout and order lifecycle management.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/cart"
)

const (
	ordersTable   = "orders"
	itemsTable    = "order_items"
	timelineTable = "order_timeline"
)

var (
	ErrNotFound  = errors.New("orders: not found")
	ErrEmptyCart = errors.New("orders: cart is empty")
)

type Item struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type TimelineEntry struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	TotalAmount   float64       `json:"total_amount"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PlacedAt      time.Time     `json:"placed_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Items    []Item          `json:"items,omitempty"`
	Timeline []TimelineEntry `json:"timeline,omitempty"`
}

// Publisher announces newly placed orders to interested consumers.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o Order) error
}

type Service struct {
	records   backend.RecordStore
	publisher Publisher
	logger    *log.Logger
}

// NewService wires the order service. publisher may be nil when no broker
// is configured.
func NewService(records backend.RecordStore, publisher Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[orders] ", log.LstdFlags)
	}
	return &Service{records: records, publisher: publisher, logger: logger}
}

// Checkout turns the given cart items into a pending order with a first
// timeline entry. The event publish is best effort: the order stands even
// when the broker is unreachable.
func (s *Service) Checkout(ctx context.Context, userID string, items []cart.Item) (*Order, error) {
	if userID == "" {
		return nil, errors.New("orders: user id is required")
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var total float64
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("orders: invalid quantity %d for %s", it.Quantity, it.ID)
		}
		total += it.Price * float64(it.Quantity)
	}

	row, err := s.records.Insert(ctx, ordersTable, backend.Record{
		"user_id":        userID,
		"total_amount":   total,
		"status":         string(StatusPending),
		"payment_status": string(PaymentPending),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	var order Order
	if err := backend.Decode(row, &order); err != nil {
		return nil, err
	}

	for _, it := range items {
		itemRow, err := s.records.Insert(ctx, itemsTable, backend.Record{
			"order_id":     order.ID,
			"product_id":   it.ID,
			"product_name": it.Name,
			"quantity":     it.Quantity,
			"price":        it.Price,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		var item Item
		if err := backend.Decode(itemRow, &item); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	s.appendTimeline(ctx, order.ID, StatusPending, "Order placed", userID)

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			s.logger.Printf("publish order %s: %v", order.ID, err)
		}
	}
	return &order, nil
}

// ListByUser returns a user's orders, newest first, items included.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	q := backend.Query{}.Eq("user_id", userID).OrderBy("placed_at", true)
	rows, err := s.records.Select(ctx, ordersTable, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.decodeWithItems(ctx, rows)
}

// ListAll returns every order for the admin dashboard, optionally narrowed
// to one fulfillment status.
func (s *Service) ListAll(ctx context.Context, status Status) ([]Order, error) {
	q := backend.Query{}.OrderBy("placed_at", true)
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("orders: unknown status %q", status)
		}
		q = q.Eq("status", string(status))
	}
	rows, err := s.records.Select(ctx, ordersTable, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.decodeWithItems(ctx, rows)
}

// Get loads one order with its items and timeline.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	tlRows, err := s.records.Select(ctx, timelineTable,
		backend.Query{}.Eq("order_id", id).OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	for _, row := range tlRows {
		var entry TimelineEntry
		if err := backend.Decode(row, &entry); err != nil {
			return nil, err
		}
		order.Timeline = append(order.Timeline, entry)
	}
	return order, nil
}

// UpdateStatus advances an order along the fulfillment flow and records
// the step in the timeline. actor identifies the admin making the change.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status, note, actor string) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("orders: unknown status %q", next)
	}
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, ErrIllegalTransition{From: order.Status, To: next}
	}

	values := backend.Record{
		"status":     string(next),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	// Cancelling a paid order flags the payment for refund.
	if next == StatusCancelled && order.PaymentStatus == PaymentCompleted {
		values["payment_status"] = string(PaymentRefunded)
	}
	rows, err := s.records.Update(ctx, ordersTable, backend.Query{}.Eq("id", id), values)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	s.appendTimeline(ctx, id, next, note, actor)
	return s.Get(ctx, id)
}

// SetPaymentStatus records the payment outcome without touching fulfillment.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, p PaymentStatus) (*Order, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("orders: unknown payment status %q", p)
	}
	rows, err := s.records.Update(ctx, ordersTable, backend.Query{}.Eq("id", id), backend.Record{
		"payment_status": string(p),
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Order, error) {
	row, err := backend.SelectOne(ctx, s.records, ordersTable, backend.Query{}.Eq("id", id))
	if errors.Is(err, backend.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	var order Order
	if err := backend.Decode(row, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) loadItems(ctx context.Context, order *Order) error {
	rows, err := s.records.Select(ctx, itemsTable, backend.Query{}.Eq("order_id", order.ID))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	for _, row := range rows {
		var item Item
		if err := backend.Decode(row, &item); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return nil
}

func (s *Service) decodeWithItems(ctx context.Context, rows []backend.Record) ([]Order, error) {
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		var order Order
		if err := backend.Decode(row, &order); err != nil {
			return nil, err
		}
		if err := s.loadItems(ctx, &order); err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

// appendTimeline is best effort: a missed timeline row never fails the
// status change that caused it.
func (s *Service) appendTimeline(ctx context.Context, orderID string, status Status, note, actor string) {
	_, err := s.records.Insert(ctx, timelineTable, backend.Record{
		"order_id":   orderID,
		"status":     string(status),
		"note":       note,
		"created_by": actor,
	})
	if err != nil {
		s.logger.Printf("append timeline for %s: %v", orderID, err)
	}
}
