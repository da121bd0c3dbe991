// Package events defines the order lifecycle feed published to Kafka for
// downstream consumers (fulfillment dashboards, artisan notifications).
// Publishing is best effort; the order in Postgres is the source of truth.
package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// TopicOrders carries every order lifecycle event, discriminated by the
// envelope's event type. One topic keyed by order id preserves per-order
// ordering for consumers.
const TopicOrders = "orders"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
}

type OrderCreatedPayload struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	ArtisanID  string          `json:"artisan_id"`
	ChatID     string          `json:"chat_id,omitempty"`
	Items      []ItemLine      `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type OrderCancelledPayload struct {
	OrderID string     `json:"order_id"`
	Items   []ItemLine `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
}

// PartitionKey keeps all events of one order on one partition of the
// orders topic.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
