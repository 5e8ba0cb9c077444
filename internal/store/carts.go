package store

import (
	"context"
	"time"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// UpsertCartItem adds a product to a user's cart, accumulating quantity
// when the line already exists. The price given is snapshotted on the
// line and kept on later quantity changes.
func (s *Store) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int, price int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO cart_items (user_id, product_id, quantity, price_at_add, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity, updated_at = excluded.updated_at`),
		userID, productID, quantity, price, now, now)
	return err
}

// SetCartItemQuantity replaces the quantity of an existing cart line.
func (s *Store) SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND product_id = ?"),
		quantity, time.Now().UTC(), userID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrCartItemNotFound
	}
	return nil
}

// DeleteCartItem removes one line from a user's cart.
func (s *Store) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM cart_items WHERE user_id = ? AND product_id = ?"),
		userID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrCartItemNotFound
	}
	return nil
}

// GetCartItems retrieves all cart lines for a user.
func (s *Store) GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		s.db.Rebind("SELECT * FROM cart_items WHERE user_id = ? ORDER BY created_at, product_id"),
		userID)
	return items, err
}

// ClearCartTx deletes every cart line for a user inside tx. Checkout
// calls this in the same transaction that creates the order.
func (s *Store) ClearCartTx(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx,
		s.db.Rebind("DELETE FROM cart_items WHERE user_id = ?"), userID)
	return err
}
