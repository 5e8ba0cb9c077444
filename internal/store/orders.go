package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertOrderTx inserts an order row inside tx.
func (s *Store) InsertOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO orders (id, user_id, total_amount, status, shipping_address, payment_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		order.ID, order.UserID, order.TotalAmount, order.Status,
		order.ShippingAddress, order.PaymentMethod, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// InsertOrderItemTx inserts one order line inside tx.
func (s *Store) InsertOrderItemTx(ctx context.Context, tx *sqlx.Tx, item *models.OrderItem) error {
	_, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)`),
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

// GetOrderForUser retrieves an order by id scoped to its owner.
func (s *Store) GetOrderForUser(ctx context.Context, orderID string, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		s.db.Rebind("SELECT * FROM orders WHERE id = ? AND user_id = ?"),
		orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByID retrieves an order by id regardless of owner. Used by
// administrative status transitions.
func (s *Store) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		s.db.Rebind("SELECT * FROM orders WHERE id = ?"), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves a user's orders, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		s.db.Rebind("SELECT * FROM orders WHERE user_id = ? ORDER BY created_at DESC"),
		userID)
	return orders, err
}

// GetOrderItems retrieves all lines for an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		s.db.Rebind("SELECT * FROM order_items WHERE order_id = ? ORDER BY product_id"),
		orderID)
	return items, err
}

// TransitionOrderStatusTx moves an order to a new status inside tx, but
// only when the current status is one of from. Returns false when the
// guard did not match, which also covers a concurrent transition that
// committed first.
func (s *Store) TransitionOrderStatusTx(ctx context.Context, tx *sqlx.Tx, orderID, to string, from ...string) (bool, error) {
	query, args, err := sqlx.In(
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)",
		to, time.Now().UTC(), orderID, from)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.db.Rebind("SELECT COUNT(1) FROM processed_events WHERE event_id = ?"), eventID)
	return count > 0, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO processed_events (event_id, event_type, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`),
		eventID, eventType, time.Now().UTC())
	return err
}
