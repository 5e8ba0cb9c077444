package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when a checkout is attempted on a cart
	// with no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderNotFound is returned when an order does not exist or does
	// not belong to the requesting user.
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound is returned when a referenced product does not
	// exist in the catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrCartItemNotFound is returned when a cart line being updated or
	// removed does not exist.
	ErrCartItemNotFound = errors.New("cart item not found")

	// ErrInvalidTransition is returned when an order status change is
	// not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrConflict is returned when a concurrent operation on the same
	// resource prevented this one; the caller may safely retry.
	ErrConflict = errors.New("conflicting concurrent operation")
)

// InsufficientStockError reports a stock reservation that exceeded the
// quantity available for a product.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
