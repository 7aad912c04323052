package checkout

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"go.uber.org/zap"
)

type WebhookResult struct {
	Event     string
	Handled   bool // false = event tidak dikenal / tidak ada yang diubah
	Duplicate bool
}

// HandleWebhook verifies and dispatches one gateway delivery. eventID is the
// gateway's delivery id header; it only shortcuts redeliveries, the order
// store stays authoritative.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (WebhookResult, error) {
	if !gateway.VerifyWebhook(body, signature, s.WebhookSecret) {
		s.Log.Warn("webhook signature mismatch", zap.String("event_id", eventID))
		return WebhookResult{}, fmt.Errorf("%w: webhook", ErrSignature)
	}
	ev, err := gateway.ParseEvent(body)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	res := WebhookResult{Event: ev.Event}
	log := s.Log.With(zap.String("event", ev.Event), zap.String("event_id", eventID))

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, eventID)
		if err != nil {
			log.Warn("dedup lookup failed", zap.Error(err))
		}
		if seen {
			log.Info("duplicate webhook delivery ignored")
			res.Duplicate = true
			return res, nil
		}
	}

	switch ev.Event {
	case gateway.EventPaymentCaptured:
		p, ok := ev.Payment()
		if !ok {
			return res, fmt.Errorf("%w: captured event without payment", ErrValidation)
		}
		if err := s.onCaptured(ctx, p); err != nil {
			return res, err
		}
		res.Handled = true

	case gateway.EventPaymentFailed:
		p, ok := ev.Payment()
		if !ok {
			return res, fmt.Errorf("%w: failed event without payment", ErrValidation)
		}
		n, err := s.onFailed(ctx, p)
		if err != nil {
			return res, err
		}
		res.Handled = n > 0

	case gateway.EventRefundProcessed:
		rf, ok := ev.Refund()
		if !ok {
			return res, fmt.Errorf("%w: refund event without payment id", ErrValidation)
		}
		rows, err := s.updateStatus(ctx, rf.PaymentID, orders.PaymentRefunded)
		if err != nil {
			return res, err
		}
		res.Handled = len(rows) > 0

	case gateway.EventPaymentAuthorized:
		// capture dilakukan otomatis oleh gateway; tunggu payment.captured
		if p, ok := ev.Payment(); ok {
			log.Info("payment authorized", zap.String("payment", p.ID), zap.String("intent", p.OrderID))
		}

	default:
		log.Info("unhandled webhook event acknowledged")
		return res, nil
	}

	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, eventID); err != nil {
			log.Warn("dedup mark failed", zap.Error(err))
		}
	}
	return res, nil
}

// onCaptured: kalau row sudah ada -> completed, kalau belum (webhook menang) -> materialize.
func (s *Service) onCaptured(ctx context.Context, p gateway.Payment) error {
	exists, err := s.Orders.ExistsForPayment(ctx, p.ID)
	if err != nil {
		return classify("check payment", err)
	}
	if exists {
		_, err := s.updateStatus(ctx, p.ID, orders.PaymentCompleted)
		return err
	}
	if p.OrderID == "" {
		return fmt.Errorf("%w: captured payment %s has no order id", ErrValidation, p.ID)
	}
	intent, err := s.Gateway.FetchIntent(ctx, p.OrderID)
	if err != nil {
		return classify("fetch intent", err)
	}
	_, _, err = s.settle(ctx, settlement{
		GatewayOrderID: p.OrderID,
		PaymentID:      p.ID,
		Status:         orders.PaymentCompleted,
		Meta:           intent.Metadata,
		Receipt:        intent.Receipt,
	})
	return err
}

// onFailed: tidak ada row berarti belum ada order yang dijanjikan; cukup dicatat.
func (s *Service) onFailed(ctx context.Context, p gateway.Payment) (int64, error) {
	n, err := s.Orders.UpdatePaymentStatus(ctx, p.ID, orders.PaymentFailed)
	if err != nil {
		return 0, classify("update payment status", err)
	}
	if n == 0 {
		s.Log.Info("payment failed before any order existed", zap.String("payment", p.ID), zap.String("intent", p.OrderID))
		if p.OrderID != "" {
			if err := s.Attempts.Note(ctx, p.OrderID, "payment "+p.ID+" failed"); err != nil {
				s.Log.Warn("note attempt", zap.String("intent", p.OrderID), zap.Error(err))
			}
		}
		return 0, nil
	}
	if err := s.Events.PaymentStatusChanged(ctx, p.ID, orders.PaymentFailed, n); err != nil {
		s.Log.Error("publish payment status", zap.String("payment", p.ID), zap.Error(err))
	}
	return n, nil
}
