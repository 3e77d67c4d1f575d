package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types published on the order lifecycle topic.
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderShipped   = "ORDER_SHIPPED"
	EventTypeOrderDelivered = "ORDER_DELIVERED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published whenever an order changes state. Consumers use it
// to fan out user notifications; the publisher never waits on them.
type OrderEvent struct {
	BaseEvent
	OrderRef string          `json:"order_ref"`
	OrderID  int64           `json:"order_id"`
	UserID   int64           `json:"user_id"`
	Total    decimal.Decimal `json:"total"`
	Source   string          `json:"source"`
	Items    []OrderItemData `json:"items,omitempty"`
}

// OrderItemData represents item data carried in events.
type OrderItemData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
