package notify

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"shop-service/internal/util"

	"go.uber.org/zap"
)

// Template kinds accepted by the mailer.
const (
	KindOrderConfirmation = "order_confirmation"
	KindOrderCancelled    = "order_cancelled"
)

// Mailer delivers transactional email (mocked). Real delivery would sit
// behind the same Send signature; the worker treats failures as
// best-effort either way.
type Mailer struct {
	logger      *zap.Logger
	successRate float64
}

// NewMailer creates a new mailer.
func NewMailer() *Mailer {
	return &Mailer{
		logger:      util.GetLogger(),
		successRate: 0.98,
	}
}

// Send renders and delivers one email of the given kind to a user.
// payload is whatever the template needs (order id, amount, reason).
func (m *Mailer) Send(ctx context.Context, userID int64, kind string, payload map[string]string) error {
	start := time.Now()

	// Simulated provider latency.
	select {
	case <-time.After(time.Duration(50+rand.Intn(150)) * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	if rand.Float64() > m.successRate {
		util.NotificationsFailedTotal.WithLabelValues(kind).Inc()
		return fmt.Errorf("mail provider rejected %s for user %d", kind, userID)
	}

	util.NotificationsSentTotal.WithLabelValues(kind).Inc()
	m.logger.Info("Email sent",
		zap.Int64("user_id", userID),
		zap.String("kind", kind),
		zap.Any("payload", payload),
		zap.Duration("took", time.Since(start)))
	return nil
}
