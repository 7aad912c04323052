package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartClearHandler retries cart clears that failed right after an order was
// persisted. Messages come from TopicCartClearRequested.
type CartClearHandler struct {
	Carts       Carts
	Attempts    Attempts
	Dedup       Deduper
	MaxAttempts int
	Backoff     time.Duration
	Log         *zap.Logger
}

// Handle returns nil only when the cart is cleared (or the event was already
// handled), so the consumer commits the offset.
func (h *CartClearHandler) Handle(ctx context.Context, m kafka.Message) error {
	if t := kafkax.Header(m.Headers, "x-event-type"); t != "" && t != orders.EventCartClearRequested {
		return nil
	}
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		h.Log.Error("drop malformed cart clear message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.CartClearRequestedPayload](env.Payload)
	if err != nil || p.UserID == "" {
		h.Log.Error("drop cart clear without user", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	log := h.Log.With(zap.String("event_id", env.EventID), zap.String("user", p.UserID), zap.String("group", p.GroupID))

	if h.Dedup != nil {
		if seen, err := h.Dedup.Seen(ctx, env.EventID); err == nil && seen {
			log.Debug("cart clear already handled")
			return nil
		}
	}

	if err := h.clearWithRetry(ctx, p.UserID); err != nil {
		log.Error("cart clear retries exhausted", zap.Error(err))
		return err
	}
	log.Info("cart cleared by worker")

	if p.AttemptID != "" {
		if _, err := h.Attempts.Advance(ctx, p.AttemptID, StateCartCleared, ""); err != nil {
			log.Warn("attempt transition failed", zap.String("attempt", p.AttemptID), zap.Error(err))
		}
	}
	if h.Dedup != nil {
		if err := h.Dedup.Mark(ctx, env.EventID); err != nil {
			log.Warn("dedup mark failed", zap.Error(err))
		}
	}
	return nil
}

func (h *CartClearHandler) clearWithRetry(ctx context.Context, userID string) error {
	tries := h.MaxAttempts
	if tries <= 0 {
		tries = 1
	}
	wait := h.Backoff
	var err error
	for i := 0; i < tries; i++ {
		if err = h.Carts.Clear(ctx, userID); err == nil {
			return nil
		}
		if i == tries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("clear cart after %d attempts: %w", tries, err)
}
