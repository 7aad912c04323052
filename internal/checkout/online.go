package checkout

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"go.uber.org/zap"
)

// CreateIntent reserves a payment at the gateway for the server-computed
// cart total. No order rows are created and the cart is left alone.
func (s *Service) CreateIntent(ctx context.Context, userID, addressID string) (gateway.Intent, error) {
	if userID == "" {
		return gateway.Intent{}, fmt.Errorf("%w: user is required", ErrAuthorization)
	}
	if err := s.usableAddress(ctx, userID, addressID); err != nil {
		return gateway.Intent{}, err
	}
	lines, err := s.cartLines(ctx, userID)
	if err != nil {
		return gateway.Intent{}, err
	}
	totals, err := pricing.AggregateCartTotals(lines)
	if err != nil {
		return gateway.Intent{}, classify("price cart", err)
	}
	amount := pricing.MinorUnits(totals.Total)
	if amount <= 0 {
		return gateway.Intent{}, fmt.Errorf("%w: nothing to pay", ErrValidation)
	}

	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())
	intent, err := s.Gateway.CreateIntent(ctx, gateway.IntentRequest{
		AmountMinor: amount,
		Currency:    s.Currency,
		Receipt:     receipt,
		Metadata: gateway.Metadata{
			UserID:      userID,
			AddressID:   addressID,
			TotalAmount: totals.Total,
		},
	})
	if err != nil {
		return gateway.Intent{}, classify("create intent", err)
	}

	// key baru ada setelah gateway jawab, jadi attempt langsung lahir di AWAITING_GATEWAY
	if err := s.Attempts.Create(ctx, Attempt{
		ID:          intent.ID,
		Kind:        KindOnline,
		UserID:      userID,
		AddressID:   addressID,
		State:       StateAwaitingGateway,
		Receipt:     receipt,
		AmountMinor: amount,
		Currency:    s.Currency,
		Total:       totals.Total,
		Cart:        lines,
	}); err != nil {
		// settle jatuh ke live cart, rekonsiliasi tidak melihat intent ini
		s.Log.Error("record checkout attempt", zap.String("intent", intent.ID), zap.Error(err))
	}
	s.Log.Info("payment intent created",
		zap.String("intent", intent.ID), zap.String("user", userID), zap.Int64("amount", amount))
	return intent, nil
}

type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	AddressID        string // dari client; metadata intent yang dipakai
}

type VerifyResult struct {
	PaymentStatus orders.PaymentStatus
	Rows          []orders.Row
	Created       bool
}

// VerifyPayment handles the client callback after the gateway checkout
// completes. User and address come from the intent metadata, never from
// the request.
func (s *Service) VerifyPayment(ctx context.Context, userID string, in VerifyInput) (VerifyResult, error) {
	if userID == "" {
		return VerifyResult{}, fmt.Errorf("%w: user is required", ErrAuthorization)
	}
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		return VerifyResult{}, fmt.Errorf("%w: order id, payment id and signature are required", ErrValidation)
	}
	if !gateway.VerifyCallback(in.GatewayOrderID, in.GatewayPaymentID, in.Signature, s.KeySecret) {
		s.Log.Warn("callback signature mismatch", zap.String("intent", in.GatewayOrderID), zap.String("payment", in.GatewayPaymentID))
		return VerifyResult{}, fmt.Errorf("%w: payment callback", ErrSignature)
	}

	payment, err := s.Gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if err != nil {
		return VerifyResult{}, classify("fetch payment", err)
	}
	intent, err := s.Gateway.FetchIntent(ctx, in.GatewayOrderID)
	if err != nil {
		return VerifyResult{}, classify("fetch intent", err)
	}
	if intent.Metadata.UserID != userID {
		return VerifyResult{}, fmt.Errorf("%w: intent %s belongs to another user", ErrAuthorization, in.GatewayOrderID)
	}
	if in.AddressID != "" && in.AddressID != intent.Metadata.AddressID {
		s.Log.Warn("callback address differs from intent, using intent",
			zap.String("intent", in.GatewayOrderID), zap.String("callback_address", in.AddressID))
	}

	status := orders.PaymentPending
	if payment.Captured() {
		status = orders.PaymentCompleted
	}
	rows, created, err := s.settle(ctx, settlement{
		GatewayOrderID: in.GatewayOrderID,
		PaymentID:      in.GatewayPaymentID,
		Signature:      in.Signature,
		Status:         status,
		Meta:           intent.Metadata,
		Receipt:        intent.Receipt,
	})
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{PaymentStatus: status, Rows: rows, Created: created}
	if len(rows) > 0 {
		res.PaymentStatus = rows[0].PaymentStatus
	}
	return res, nil
}
