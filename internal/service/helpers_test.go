package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE products (
  id INTEGER PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  price INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE TABLE cart_items (
  user_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  price_at_add INTEGER NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  PRIMARY KEY (user_id, product_id)
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  total_amount INTEGER NOT NULL,
  status TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE TABLE order_items (
  order_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price INTEGER NOT NULL,
  PRIMARY KEY (order_id, product_id)
);
CREATE TABLE processed_events (
  event_id TEXT PRIMARY KEY,
  event_type TEXT,
  processed_at TIMESTAMP
);`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return store.NewStoreWithDB(db)
}

func seedProduct(t *testing.T, s *store.Store, id int64, price int64, stock int) {
	t.Helper()
	now := time.Now().UTC()
	_, err := s.GetDB().Exec(s.GetDB().Rebind(
		"INSERT INTO products (id, sku, title, price, stock, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		id, fmt.Sprintf("SKU-%d", id), "Test Product", price, stock, now, now)
	require.NoError(t, err)
}

func productStock(t *testing.T, s *store.Store, id int64) int {
	t.Helper()
	p, err := s.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// stubPublisher records published events.
type stubPublisher struct {
	mu        sync.Mutex
	placed    []*models.OrderPlacedEvent
	cancelled []*models.OrderCancelledEvent
	err       error
}

func (p *stubPublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return p.err
}

func (p *stubPublisher) PublishOrderCancelled(_ context.Context, event *models.OrderCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, event)
	return p.err
}

// stubGuard is an in-memory CheckoutGuard.
type stubGuard struct {
	mu    sync.Mutex
	locks map[string]bool
	keys  map[string]string
}

func newStubGuard() *stubGuard {
	return &stubGuard{
		locks: make(map[string]bool),
		keys:  make(map[string]string),
	}
}

func (g *stubGuard) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks[key] {
		return false, nil
	}
	g.locks[key] = true
	return true, nil
}

func (g *stubGuard) ReleaseLock(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, key)
	return nil
}

func (g *stubGuard) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = value
	return nil
}

func (g *stubGuard) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[key], nil
}
