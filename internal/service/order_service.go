package service

import (
	"context"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// OrderService manages the lifecycle of placed orders: owner-scoped
// reads, user cancellation, and the administrative forward transitions.
type OrderService struct {
	store     *store.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service. publisher may be nil.
func NewOrderService(st *store.Store, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// GetOrder retrieves one order with its line items, scoped to its owner.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, userID int64) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListOrders retrieves a user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	return s.store.GetOrdersByUserID(ctx, userID)
}

// Cancel cancels an order on behalf of its owner. The status change and
// the stock release for every line item commit as one transaction; a
// cancellation racing another transition loses cleanly. Allowed only
// from PENDING or PROCESSING.
func (s *OrderService) Cancel(ctx context.Context, orderID string, userID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	order, err := s.store.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		util.CancellationsRejectedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if !models.Cancellable(order.Status) {
		util.CancellationsRejectedTotal.WithLabelValues("terminal_status").Inc()
		return nil, models.ErrInvalidTransition
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.store.TransitionOrderStatusTx(ctx, tx, orderID, models.OrderStatusCancelled,
			models.OrderStatusPending, models.OrderStatusProcessing)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrInvalidTransition
		}

		for _, it := range items {
			if err := s.store.ReleaseStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.Int64("user_id", userID))

	s.publishOrderCancelled(ctx, order, "cancelled by customer")

	return order, nil
}

// AdvanceStatus moves an order one step along the fulfillment path
// (PENDING to PROCESSING to SHIPPED to DELIVERED). Driven by
// administrative action; the requested status must be the exact
// successor of the current one.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID, requested string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdvanceStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextStatus(order.Status)
	if !ok || next != requested {
		return nil, models.ErrInvalidTransition
	}

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.store.TransitionOrderStatusTx(ctx, tx, orderID, requested, order.Status)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = requested
	s.logger.Info("Order status advanced",
		zap.String("order_id", orderID),
		zap.String("status", requested))

	return order, nil
}

func (s *OrderService) publishOrderCancelled(ctx context.Context, order *models.Order, reason string) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Reason:  reason,
	}

	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}
