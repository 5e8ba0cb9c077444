package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CheckoutService turns a user's cart into an immutable order. The whole
// materialization (order row, order items, stock decrements, cart clear)
// commits as one transaction; on any failure the cart and stock are left
// exactly as they were.
type CheckoutService struct {
	store     *store.Store
	publisher EventPublisher
	guard     CheckoutGuard

	lockTTL        time.Duration
	idempotencyTTL time.Duration

	logger *zap.Logger
}

// NewCheckoutService creates a new checkout service. publisher and guard
// may be nil, which disables event publishing and the Redis idempotency
// layer respectively.
func NewCheckoutService(st *store.Store, publisher EventPublisher, guard CheckoutGuard) *CheckoutService {
	return &CheckoutService{
		store:          st,
		publisher:      publisher,
		guard:          guard,
		lockTTL:        30 * time.Second,
		idempotencyTTL: 24 * time.Hour,
		logger:         util.GetLogger(),
	}
}

// SetTTLs overrides the defaults for the checkout lock and the
// idempotency key retention.
func (s *CheckoutService) SetTTLs(lock, idempotency time.Duration) {
	if lock > 0 {
		s.lockTTL = lock
	}
	if idempotency > 0 {
		s.idempotencyTTL = idempotency
	}
}

// PlaceOrderRequest carries everything checkout needs besides the cart
// itself. UserID is the verified identity supplied by the caller.
type PlaceOrderRequest struct {
	UserID          int64
	ShippingAddress string
	PaymentMethod   string
	IdempotencyKey  string
}

// PlaceOrder materializes the user's cart into a PENDING order.
//
// Validation failures (empty cart, missing product, insufficient stock)
// and a stock race lost at commit time all leave every entity in its
// pre-call state, so the caller may retry the whole operation safely.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if order, done, err := s.replayIdempotent(ctx, req); done {
		return order, err
	}

	if s.guard != nil {
		lockKey := fmt.Sprintf("checkout:user:%d", req.UserID)
		acquired, err := s.guard.AcquireLock(ctx, lockKey, s.lockTTL)
		if err != nil {
			s.logger.Warn("Checkout lock unavailable, proceeding without it", zap.Error(err))
		} else if !acquired {
			util.OrdersFailedTotal.WithLabelValues("concurrent_checkout").Inc()
			return nil, models.ErrConflict
		} else {
			defer func() {
				if err := s.guard.ReleaseLock(context.Background(), lockKey); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	items, err := s.store.GetCartItems(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, models.ErrEmptyCart
	}

	if err := s.validateStock(ctx, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		TotalAmount:     models.CartTotal(items),
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.InsertOrderTx(ctx, tx, order); err != nil {
			return err
		}

		for _, it := range items {
			orderItem := &models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.PriceAtAdd,
			}
			if err := s.store.InsertOrderItemTx(ctx, tx, orderItem); err != nil {
				return err
			}

			if err := s.store.ReserveStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		return s.store.ClearCartTx(ctx, tx, req.UserID)
	})
	if err != nil {
		var stockErr *models.InsufficientStockError
		if errors.As(err, &stockErr) {
			// Lost the stock race after pre-validation passed.
			util.StockReservationsFailed.WithLabelValues("lost_race").Inc()
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("checkout transaction failed: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int64("total_amount", order.TotalAmount))

	s.rememberIdempotent(ctx, req.IdempotencyKey, order.ID)
	s.publishOrderPlaced(ctx, order, items)

	return order, nil
}

// validateStock checks every requested quantity against the product's
// live stock. The first insufficient item encountered is reported.
func (s *CheckoutService) validateStock(ctx context.Context, items []models.CartItem) error {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	for _, it := range items {
		product, ok := products[it.ProductID]
		if !ok {
			return models.ErrProductNotFound
		}
		if product.Stock < it.Quantity {
			return &models.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: product.Stock,
			}
		}
	}
	return nil
}

// replayIdempotent returns the previously created order when the request
// carries a known idempotency key. done is false when checkout should
// proceed normally.
func (s *CheckoutService) replayIdempotent(ctx context.Context, req *PlaceOrderRequest) (*models.Order, bool, error) {
	if s.guard == nil || req.IdempotencyKey == "" {
		return nil, false, nil
	}

	orderID, err := s.guard.GetIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil, false, nil
	}
	if orderID == "" {
		return nil, false, nil
	}

	order, err := s.store.GetOrderForUser(ctx, orderID, req.UserID)
	if err != nil {
		s.logger.Warn("Idempotency key points at unknown order",
			zap.String("order_id", orderID), zap.Error(err))
		return nil, false, nil
	}

	s.logger.Info("Duplicate checkout replayed",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("order_id", order.ID))
	return order, true, nil
}

func (s *CheckoutService) rememberIdempotent(ctx context.Context, key, orderID string) {
	if s.guard == nil || key == "" {
		return
	}
	if err := s.guard.SetIdempotencyKey(ctx, key, orderID, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.Error(err))
	}
}

func (s *CheckoutService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.CartItem) {
	if s.publisher == nil {
		return
	}

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.PriceAtAdd,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:         order.ID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Items:           eventItems,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}
