package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotal(t *testing.T) {
	items := []CartItem{
		{ProductID: 1, Quantity: 2, PriceAtAdd: 1000},
		{ProductID: 2, Quantity: 1, PriceAtAdd: 500},
	}
	assert.Equal(t, int64(2500), CartTotal(items))
	assert.Equal(t, int64(0), CartTotal(nil))
}

func TestCancellable(t *testing.T) {
	assert.True(t, Cancellable(OrderStatusPending))
	assert.True(t, Cancellable(OrderStatusProcessing))
	assert.False(t, Cancellable(OrderStatusShipped))
	assert.False(t, Cancellable(OrderStatusDelivered))
	assert.False(t, Cancellable(OrderStatusCancelled))
}

func TestNextStatus(t *testing.T) {
	next, ok := NextStatus(OrderStatusPending)
	assert.True(t, ok)
	assert.Equal(t, OrderStatusProcessing, next)

	_, ok = NextStatus(OrderStatusDelivered)
	assert.False(t, ok)
	_, ok = NextStatus(OrderStatusCancelled)
	assert.False(t, ok)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductID: 9, Requested: 6, Available: 5}
	assert.Equal(t, "insufficient stock for product 9: requested 6, available 5", err.Error())
}
