package models

import "time"

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order has committed. The
// notification worker turns it into an order-confirmation email.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID         string          `json:"order_id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     int64           `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	Items           []OrderItemData `json:"items"`
}

// OrderCancelledEvent is published after a cancellation has committed.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Reason  string `json:"reason"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
