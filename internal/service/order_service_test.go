package service

import (
	"context"
	"testing"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeTestOrder drives a real checkout so cancellation tests start from
// the same state production does.
func placeTestOrder(t *testing.T, st *store.Store, userID int64) *models.Order {
	t.Helper()
	svc := NewCheckoutService(st, nil, nil)
	order, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID: userID, ShippingAddress: "1 Elm St", PaymentMethod: "card",
	})
	require.NoError(t, err)
	return order
}

func TestCancelRestoresStock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	seedProduct(t, st, 2, 500, 3)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 2, 1000))
	require.NoError(t, st.UpsertCartItem(ctx, 7, 2, 1, 500))
	order := placeTestOrder(t, st, 7)

	require.Equal(t, 3, productStock(t, st, 1))
	require.Equal(t, 2, productStock(t, st, 2))

	pub := &stubPublisher{}
	svc := NewOrderService(st, pub)

	cancelled, err := svc.Cancel(ctx, order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// Every line item's quantity went back to its product.
	assert.Equal(t, 5, productStock(t, st, 1))
	assert.Equal(t, 3, productStock(t, st, 2))

	got, err := st.GetOrderForUser(ctx, order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)

	require.Len(t, pub.cancelled, 1)
	assert.Equal(t, order.ID, pub.cancelled[0].OrderID)
}

func TestCancelTwice(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 1, 1000))
	order := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	_, err := svc.Cancel(ctx, order.ID, 7)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, 7)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// The second attempt did not release stock again.
	assert.Equal(t, 5, productStock(t, st, 1))
}

func TestCancelShippedOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 2, 1000))
	order := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	_, err := svc.AdvanceStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, 7)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, 3, productStock(t, st, 1))
}

func TestCancelProcessingOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 1, 1000))
	order := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	_, err := svc.AdvanceStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, productStock(t, st, 1))
}

func TestCancelForeignOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 1, 1000))
	order := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	_, err := svc.Cancel(ctx, order.ID, 99)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
	assert.Equal(t, 4, productStock(t, st, 1))
}

func TestAdvanceStatusForwardOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 5)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 1, 1000))
	order := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	// Skipping a step is rejected.
	_, err := svc.AdvanceStatus(ctx, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	for _, next := range []string{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		got, err := svc.AdvanceStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	// DELIVERED is terminal.
	_, err = svc.AdvanceStatus(ctx, order.ID, models.OrderStatusProcessing)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestListAndGetOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, st, 1, 1000, 10)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 1, 1000))
	first := placeTestOrder(t, st, 7)
	require.NoError(t, st.UpsertCartItem(ctx, 7, 1, 2, 1000))
	second := placeTestOrder(t, st, 7)

	svc := NewOrderService(st, nil)

	orders, err := svc.ListOrders(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	// Stored totals always match the sum of the line items.
	for _, id := range []string{first.ID, second.ID} {
		order, items, err := svc.GetOrder(ctx, id, 7)
		require.NoError(t, err)
		var sum int64
		for _, it := range items {
			sum += it.UnitPrice * int64(it.Quantity)
		}
		assert.Equal(t, order.TotalAmount, sum)
	}

	_, _, err = svc.GetOrder(ctx, first.ID, 99)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	other, err := svc.ListOrders(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, other)
}
