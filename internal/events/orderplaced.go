package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/axelsjewelry/storefront/internal/orders"
)

const (
	orderPlacedEventName    = "OrderPlaced"
	orderPlacedEventVersion = 1
	producerName            = "storefront"
)

// OrderItem is the event-side view of a purchased line.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// OrderPlacedPayload is the v1 payload schema.
type OrderPlacedPayload struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	PlacedAt    time.Time   `json:"placedAt"`
}

// OrderPlacedEnvelope is the enveloped event structure.
type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

// BuildOrderPlacedEnvelope builds an enveloped OrderPlaced event keyed by
// the order id.
func BuildOrderPlacedEnvelope(o orders.Order, correlationID string) OrderPlacedEnvelope {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return OrderPlacedEnvelope{
		EventName:     orderPlacedEventName,
		EventVersion:  orderPlacedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      producerName,
		PartitionKey:  o.ID,
		OccurredAt:    time.Now().UTC(),
		Payload: OrderPlacedPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Items:       items,
			TotalAmount: o.TotalAmount,
			PlacedAt:    o.PlacedAt,
		},
	}
}
