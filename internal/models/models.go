package models

import "time"

// Product represents a product in the catalog. Price is stored in minor
// currency units. Stock is only mutated through the store's ledger operations.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Title     string    `db:"title" json:"title"`
	Price     int64     `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is one line of a user's cart. PriceAtAdd is the product price
// snapshotted when the item entered the cart; checkout uses it as-is and
// never re-reads the live catalog price.
type CartItem struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	PriceAtAdd int64     `db:"price_at_add" json:"price_at_add"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Subtotal returns price_at_add x quantity for this line.
func (ci CartItem) Subtotal() int64 {
	return ci.PriceAtAdd * int64(ci.Quantity)
}

// CartTotal sums the snapshot subtotals of all items in a cart.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// Order represents a completed checkout. Identity and line items are
// immutable after creation; only Status changes afterwards.
type Order struct {
	ID              string    `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	Status          string    `db:"status" json:"status"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable snapshot of one product in an order.
type OrderItem struct {
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// statusSuccessor encodes the forward-only fulfillment path.
var statusSuccessor = map[string]string{
	OrderStatusPending:    OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// NextStatus returns the next fulfillment status after current, if any.
func NextStatus(current string) (string, bool) {
	next, ok := statusSuccessor[current]
	return next, ok
}

// Cancellable reports whether a user may still cancel an order in the
// given status. SHIPPED, DELIVERED and CANCELLED are terminal for
// user-initiated cancellation.
func Cancellable(status string) bool {
	return status == OrderStatusPending || status == OrderStatusProcessing
}

// ProcessedEvent records a consumed event id for notification dedup.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
