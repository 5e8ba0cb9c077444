package service

import (
	"context"
	"time"

	"shop-service/internal/models"
)

// EventPublisher publishes domain events after a committed state change.
// Publish failures are logged by callers, never surfaced: notification
// delivery is fire-and-forget relative to the transaction.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// CheckoutGuard provides best-effort idempotency keys and per-user
// checkout locks, backed by Redis in production. A nil guard disables
// both without affecting correctness: the stock ledger remains the
// authoritative serialization point.
type CheckoutGuard interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
}
