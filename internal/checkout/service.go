package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"go.uber.org/zap"
)

type Gateway interface {
	CreateIntent(ctx context.Context, r gateway.IntentRequest) (gateway.Intent, error)
	FetchIntent(ctx context.Context, id string) (gateway.Intent, error)
	FetchPayment(ctx context.Context, id string) (gateway.Payment, error)
	ListIntentPayments(ctx context.Context, intentID string) ([]gateway.Payment, error)
}

type Carts interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
	Clear(ctx context.Context, userID string) error
}

type Addresses interface {
	Get(ctx context.Context, id string) (address.Address, error)
}

type OrderStore interface {
	InsertGroup(ctx context.Context, g orders.Group) error
	ExistsForPayment(ctx context.Context, paymentID string) (bool, error)
	ListByPayment(ctx context.Context, paymentID string) ([]orders.Row, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, to orders.PaymentStatus) (int64, error)
}

type Attempts interface {
	Create(ctx context.Context, a Attempt) error
	Get(ctx context.Context, id string) (Attempt, error)
	Advance(ctx context.Context, id string, to State, note string) (bool, error)
	Note(ctx context.Context, id, note string) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]Attempt, error)
	ListUncleared(ctx context.Context, before time.Time, limit int) ([]Attempt, error)
}

type Events interface {
	OrderPlaced(ctx context.Context, g orders.Group) error
	PaymentStatusChanged(ctx context.Context, paymentID string, status orders.PaymentStatus, n int64) error
	CartClearRequested(ctx context.Context, userID, groupID, attemptID, reason string) error
}

type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// Service is the checkout orchestrator. COD, sync verification and webhook
// delivery all converge on the same settle + clear-cart steps. Idempotency
// rests on the order store's unique payment id, not on in-process locks.
type Service struct {
	Gateway   Gateway
	Carts     Carts
	Addresses Addresses
	Orders    OrderStore
	Attempts  Attempts
	Events    Events
	Dedup     Deduper
	Log       *zap.Logger

	KeySecret     string // verifikasi callback client
	WebhookSecret string // verifikasi webhook
	Currency      string

	Clock func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// usableAddress: alamat harus milik user dan aktif.
func (s *Service) usableAddress(ctx context.Context, userID, addressID string) error {
	if addressID == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	a, err := s.Addresses.Get(ctx, addressID)
	if err != nil {
		return classify("load address", err)
	}
	if !a.Usable(userID) {
		return fmt.Errorf("%w: address %s is not available", ErrValidation, addressID)
	}
	return nil
}

func (s *Service) cartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	lines, err := s.Carts.Lines(ctx, userID)
	if err != nil {
		return nil, classify("read cart", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidation, orders.ErrEmptyCart)
	}
	return lines, nil
}

// advance is bookkeeping only; a refused or failed transition never fails the caller.
func (s *Service) advance(ctx context.Context, attemptID string, to State, note string) {
	ok, err := s.Attempts.Advance(ctx, attemptID, to, note)
	switch {
	case err != nil:
		s.Log.Warn("attempt transition failed", zap.String("attempt", attemptID), zap.String("to", string(to)), zap.Error(err))
	case !ok:
		s.Log.Debug("attempt transition skipped", zap.String("attempt", attemptID), zap.String("to", string(to)))
	}
}

// afterPersist: order sudah jadi sumber kebenaran; publish & clear cart tidak boleh bikin gagal.
func (s *Service) afterPersist(ctx context.Context, g orders.Group, attemptID string) {
	if err := s.Events.OrderPlaced(ctx, g); err != nil {
		s.Log.Error("publish order placed", zap.String("group", g.ID), zap.Error(err))
	}
	s.clearCart(ctx, g.UserID, g.ID, attemptID)
}

func (s *Service) clearCart(ctx context.Context, userID, groupID, attemptID string) {
	err := s.Carts.Clear(ctx, userID)
	if err == nil {
		s.advance(ctx, attemptID, StateCartCleared, "")
		return
	}
	s.Log.Warn("cart clear failed, scheduling retry",
		zap.String("user", userID), zap.String("group", groupID), zap.Error(err))
	if perr := s.Events.CartClearRequested(ctx, userID, groupID, attemptID, err.Error()); perr != nil {
		s.Log.Error("schedule cart clear retry", zap.String("user", userID), zap.Error(perr))
	}
}

// CashOnDelivery materializes the cart as pending COD orders and clears it.
func (s *Service) CashOnDelivery(ctx context.Context, userID, addressID string) ([]orders.Row, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrAuthorization)
	}
	if err := s.usableAddress(ctx, userID, addressID); err != nil {
		return nil, err
	}
	lines, err := s.cartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	g, err := orders.Materialize(lines, userID, addressID, orders.PaymentMeta{
		Method: orders.MethodCashOnDelivery,
		Status: orders.PaymentPending,
	})
	if err != nil {
		return nil, classify("materialize", err)
	}

	if err := s.Attempts.Create(ctx, Attempt{
		ID:        g.ID,
		Kind:      KindCashOnDelivery,
		UserID:    userID,
		AddressID: addressID,
		State:     StateInitiated,
		Total:     g.Total,
		Cart:      lines,
	}); err != nil {
		return nil, classify("record attempt", err)
	}

	if err := s.Orders.InsertGroup(ctx, g); err != nil {
		s.advance(ctx, g.ID, StateFailed, err.Error())
		return nil, classify("insert orders", err)
	}
	s.advance(ctx, g.ID, StateMaterialized, "")
	s.Log.Info("cod order placed", zap.String("group", g.ID), zap.String("user", userID), zap.Int("rows", len(g.Rows)))

	s.afterPersist(ctx, g, g.ID)
	return g.Rows, nil
}

// settlement: pembayaran online yang sudah terverifikasi (callback, webhook, atau rekonsiliasi).
type settlement struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	Status         orders.PaymentStatus
	Meta           gateway.Metadata
	Receipt        string
}

// settle ensures exactly one order group per payment id. Whoever inserts
// first materializes; everyone else only moves the payment status.
func (s *Service) settle(ctx context.Context, st settlement) ([]orders.Row, bool, error) {
	exists, err := s.Orders.ExistsForPayment(ctx, st.PaymentID)
	if err != nil {
		return nil, false, classify("check payment", err)
	}
	if exists {
		rows, err := s.updateStatus(ctx, st.PaymentID, st.Status)
		return rows, false, err
	}

	s.advance(ctx, st.GatewayOrderID, StateVerified, "")

	lines, err := s.settlementLines(ctx, st)
	if err != nil {
		s.Log.Error("captured payment has nothing to materialize",
			zap.String("payment", st.PaymentID), zap.String("intent", st.GatewayOrderID), zap.Error(err))
		return nil, false, err
	}
	g, err := orders.Materialize(lines, st.Meta.UserID, st.Meta.AddressID, orders.PaymentMeta{
		Method:           orders.MethodOnlineGateway,
		Status:           st.Status,
		GatewayOrderID:   st.GatewayOrderID,
		GatewayPaymentID: st.PaymentID,
		GatewaySignature: st.Signature,
		Receipt:          st.Receipt,
	})
	if err != nil {
		return nil, false, classify("materialize", err)
	}

	err = s.Orders.InsertGroup(ctx, g)
	if errors.Is(err, orders.ErrDuplicatePayment) {
		// kalah race dengan path lain
		s.Log.Info("payment already materialized", zap.String("payment", st.PaymentID))
		rows, err := s.updateStatus(ctx, st.PaymentID, st.Status)
		return rows, false, err
	}
	if err != nil {
		return nil, false, classify("insert orders", err)
	}
	s.advance(ctx, st.GatewayOrderID, StateMaterialized, "")
	s.Log.Info("online order placed",
		zap.String("group", g.ID), zap.String("payment", st.PaymentID),
		zap.String("status", string(st.Status)), zap.Int("rows", len(g.Rows)))

	s.afterPersist(ctx, g, st.GatewayOrderID)
	return g.Rows, true, nil
}

// settlementLines prefers the cart snapshot taken at intent creation, so
// cart edits during payment don't change what gets ordered.
func (s *Service) settlementLines(ctx context.Context, st settlement) ([]cart.Line, error) {
	a, err := s.Attempts.Get(ctx, st.GatewayOrderID)
	switch {
	case err == nil && len(a.Cart) > 0:
		return a.Cart, nil
	case err != nil && !errors.Is(err, ErrAttemptNotFound):
		s.Log.Warn("load attempt snapshot", zap.String("intent", st.GatewayOrderID), zap.Error(err))
	}
	s.Log.Info("no cart snapshot, using live cart", zap.String("intent", st.GatewayOrderID))
	return s.cartLines(ctx, st.Meta.UserID)
}

func (s *Service) updateStatus(ctx context.Context, paymentID string, to orders.PaymentStatus) ([]orders.Row, error) {
	n, err := s.Orders.UpdatePaymentStatus(ctx, paymentID, to)
	if err != nil {
		return nil, classify("update payment status", err)
	}
	if n > 0 {
		if err := s.Events.PaymentStatusChanged(ctx, paymentID, to, n); err != nil {
			s.Log.Error("publish payment status", zap.String("payment", paymentID), zap.Error(err))
		}
	}
	rows, err := s.Orders.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, classify("list orders", err)
	}
	return rows, nil
}
