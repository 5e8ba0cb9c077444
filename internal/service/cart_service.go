package service

import (
	"context"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages a user's pre-checkout selection. Prices are
// snapshotted onto cart lines at add time; the checkout consumes them
// as-is.
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store) *CartService {
	return &CartService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// CartView is the current state of a user's cart.
type CartView struct {
	Items []models.CartItem `json:"items"`
	Total int64             `json:"total"`
}

// AddItem puts quantity units of a product into the user's cart,
// snapshotting the current catalog price on the line.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		quantity = 1
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.store.UpsertCartItem(ctx, userID, productID, quantity, product.Price); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Info("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return nil
}

// SetQuantity changes the quantity of an existing cart line. A quantity
// of zero removes the line; the snapshotted price is kept otherwise.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if quantity <= 0 {
		return s.store.DeleteCartItem(ctx, userID, productID)
	}
	return s.store.SetCartItemQuantity(ctx, userID, productID, quantity)
}

// RemoveItem deletes one line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	return s.store.DeleteCartItem(ctx, userID, productID)
}

// View returns the user's cart lines and their snapshot total. An empty
// cart is a valid view.
func (s *CartService) View(ctx context.Context, userID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.View")
	defer span.End()

	items, err := s.store.GetCartItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return &CartView{
		Items: items,
		Total: models.CartTotal(items),
	}, nil
}
