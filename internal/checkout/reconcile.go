package checkout

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"go.uber.org/zap"
)

// Reconciler sweeps online attempts that neither the callback nor the
// webhook finished, asking the gateway directly whether money moved.
// It also finishes cart clears for materialized attempts of any kind, so a
// lost CartClearRequested event never leaves a paid cart behind.
type Reconciler struct {
	Service  *Service
	After    time.Duration // attempt dianggap macet setelah ini
	Expiry   time.Duration // tanpa capture sampai ini -> FAILED
	Batch    int
	Interval time.Duration
	Log      *zap.Logger
}

type SweepStats struct {
	Checked      int
	Materialized int
	Expired      int
	Cleared      int
	Errors       int
}

func (r *Reconciler) Run(ctx context.Context) error {
	every := r.Interval
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		st, err := r.SweepOnce(ctx)
		if err != nil {
			r.Log.Error("reconcile sweep failed", zap.Error(err))
		} else if st.Checked > 0 || st.Cleared > 0 || st.Errors > 0 {
			r.Log.Info("reconcile sweep",
				zap.Int("checked", st.Checked), zap.Int("materialized", st.Materialized),
				zap.Int("expired", st.Expired), zap.Int("cleared", st.Cleared), zap.Int("errors", st.Errors))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (r *Reconciler) SweepOnce(ctx context.Context) (SweepStats, error) {
	var st SweepStats
	now := r.Service.now()
	stale, err := r.Service.Attempts.ListStale(ctx, now.Add(-r.After), r.Batch)
	if err != nil {
		return st, classify("list stale attempts", err)
	}
	for _, a := range stale {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		st.Checked++
		done, err := r.reconcile(ctx, a)
		switch {
		case err != nil:
			st.Errors++
			r.Log.Warn("reconcile attempt", zap.String("attempt", a.ID), zap.Error(err))
			_ = r.Service.Attempts.Note(ctx, a.ID, err.Error())
		case done:
			st.Materialized++
		case now.Sub(a.CreatedAt) > r.Expiry:
			r.Service.advance(ctx, a.ID, StateFailed, "expired without captured payment")
			st.Expired++
		}
	}

	uncleared, err := r.Service.Attempts.ListUncleared(ctx, now.Add(-r.After), r.Batch)
	if err != nil {
		return st, classify("list uncleared attempts", err)
	}
	for _, a := range uncleared {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		// clear idempotent; aman walau worker kafka sudah jalan duluan
		if err := r.Service.Carts.Clear(ctx, a.UserID); err != nil {
			st.Errors++
			r.Log.Warn("sweep cart clear", zap.String("attempt", a.ID), zap.String("user", a.UserID), zap.Error(err))
			_ = r.Service.Attempts.Note(ctx, a.ID, "cart clear: "+err.Error())
			continue
		}
		r.Service.advance(ctx, a.ID, StateCartCleared, "")
		st.Cleared++
	}
	return st, nil
}

// reconcile returns true once a captured payment for the attempt is settled.
func (r *Reconciler) reconcile(ctx context.Context, a Attempt) (bool, error) {
	payments, err := r.Service.Gateway.ListIntentPayments(ctx, a.ID)
	if err != nil {
		return false, classify("list intent payments", err)
	}
	var captured *gateway.Payment
	for i := range payments {
		if payments[i].Captured() {
			captured = &payments[i]
			break
		}
	}
	if captured == nil {
		return false, nil
	}

	r.Log.Info("captured payment found by sweep", zap.String("attempt", a.ID), zap.String("payment", captured.ID))
	_, _, err = r.Service.settle(ctx, settlement{
		GatewayOrderID: a.ID,
		PaymentID:      captured.ID,
		Status:         orders.PaymentCompleted,
		Meta:           gateway.Metadata{UserID: a.UserID, AddressID: a.AddressID, TotalAmount: a.Total},
		Receipt:        a.Receipt,
	})
	if err != nil {
		return false, err
	}
	// order dibuat path lain tapi attempt tertinggal
	r.Service.advance(ctx, a.ID, StateVerified, "")
	r.Service.advance(ctx, a.ID, StateMaterialized, "")
	return true, nil
}
