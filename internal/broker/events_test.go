package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shop-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageFor(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestEventHandlerRoutesOrderPlaced(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderPlacedEvent
	eh.OnOrderPlaced(func(_ context.Context, event *models.OrderPlacedEvent) error {
		got = event
		return nil
	})

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     "ord-1",
		UserID:      7,
		TotalAmount: 2500,
		Items: []models.OrderItemData{
			{ProductID: 1, Quantity: 2, UnitPrice: 1000},
		},
	}

	require.NoError(t, eh.HandleMessage(context.Background(), messageFor(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, int64(2500), got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1000), got.Items[0].UnitPrice)
}

func TestEventHandlerRoutesOrderCancelled(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderCancelledEvent
	eh.OnOrderCancelled(func(_ context.Context, event *models.OrderCancelledEvent) error {
		got = event
		return nil
	})

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: "ord-1",
		UserID:  7,
		Reason:  "cancelled by customer",
	}

	require.NoError(t, eh.HandleMessage(context.Background(), messageFor(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "cancelled by customer", got.Reason)
}

func TestEventHandlerIgnoresUnknownType(t *testing.T) {
	eh := NewEventHandler()
	eh.OnOrderPlaced(func(_ context.Context, _ *models.OrderPlacedEvent) error {
		t.Fatal("handler should not run for unknown event types")
		return nil
	})

	msg := messageFor(t, models.BaseEvent{EventID: "evt-3", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, eh.HandleMessage(context.Background(), msg))
}

func TestEventHandlerRejectsMalformedPayload(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
