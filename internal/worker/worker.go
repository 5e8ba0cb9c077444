package worker

import (
	"context"
	"strconv"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/notify"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes order events and turns them into emails.
// Delivery is best-effort: a failed send is logged and the event is
// still committed, so notification problems never feed back into order
// state. Events are deduplicated through the processed_events table.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	mailer       *notify.Mailer
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker.
func NewNotificationWorker(consumer *broker.Consumer, st *store.Store, mailer *notify.Mailer) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    st,
		mailer:   mailer,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderCancelled(w.handleOrderCancelled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	seen, err := w.seen(ctx, event.EventID)
	if err != nil || seen {
		return err
	}

	payload := map[string]string{
		"order_id": event.OrderID,
		"total":    strconv.FormatInt(event.TotalAmount, 10),
		"address":  event.ShippingAddress,
	}
	if err := w.mailer.Send(ctx, event.UserID, notify.KindOrderConfirmation, payload); err != nil {
		w.logger.Error("Order confirmation email failed",
			zap.String("order_id", event.OrderID), zap.Error(err))
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *NotificationWorker) handleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	seen, err := w.seen(ctx, event.EventID)
	if err != nil || seen {
		return err
	}

	payload := map[string]string{
		"order_id": event.OrderID,
		"reason":   event.Reason,
	}
	if err := w.mailer.Send(ctx, event.UserID, notify.KindOrderCancelled, payload); err != nil {
		w.logger.Error("Cancellation email failed",
			zap.String("order_id", event.OrderID), zap.Error(err))
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *NotificationWorker) seen(ctx context.Context, eventID string) (bool, error) {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		w.logger.Error("Dedup check failed", zap.String("event_id", eventID), zap.Error(err))
		return false, err
	}
	if processed {
		w.logger.Debug("Skipping already processed event", zap.String("event_id", eventID))
	}
	return processed, nil
}
