package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	keySecret     = "key_secret_test"
	webhookSecret = "whsec_test"
)

type fakeGateway struct {
	mu       sync.Mutex
	intents  map[string]gateway.Intent
	payments map[string]gateway.Payment
	created  []gateway.IntentRequest
	err      error
	seq      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]gateway.Intent{}, payments: map[string]gateway.Payment{}}
}

func (f *fakeGateway) CreateIntent(_ context.Context, r gateway.IntentRequest) (gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gateway.Intent{}, f.err
	}
	f.seq++
	in := gateway.Intent{
		ID: fmt.Sprintf("order_%d", f.seq), Amount: r.AmountMinor, Currency: r.Currency,
		Receipt: r.Receipt, Status: "created", Metadata: r.Metadata,
	}
	f.intents[in.ID] = in
	f.created = append(f.created, r)
	return in, nil
}

func (f *fakeGateway) FetchIntent(_ context.Context, id string) (gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gateway.Intent{}, f.err
	}
	in, ok := f.intents[id]
	if !ok {
		return gateway.Intent{}, fmt.Errorf("%w: intent %s not found", gateway.ErrGateway, id)
	}
	return in, nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, id string) (gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gateway.Payment{}, f.err
	}
	p, ok := f.payments[id]
	if !ok {
		return gateway.Payment{}, fmt.Errorf("%w: payment %s not found", gateway.ErrGateway, id)
	}
	return p, nil
}

func (f *fakeGateway) ListIntentPayments(_ context.Context, intentID string) ([]gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []gateway.Payment
	for _, p := range f.payments {
		if p.OrderID == intentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeGateway) pay(intentID, paymentID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[paymentID] = gateway.Payment{ID: paymentID, OrderID: intentID, Status: status, Amount: f.intents[intentID].Amount}
}

type fakeCarts struct {
	mu       sync.Mutex
	lines    map[string][]cart.Line
	clearErr error
	clears   int
}

func (f *fakeCarts) Lines(_ context.Context, userID string) ([]cart.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cart.Line{}, f.lines[userID]...), nil
}

func (f *fakeCarts) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.lines, userID)
	return nil
}

func (f *fakeCarts) items(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines[userID])
}

type fakeAddresses map[string]address.Address

func (f fakeAddresses) Get(_ context.Context, id string) (address.Address, error) {
	a, ok := f[id]
	if !ok {
		return address.Address{}, address.ErrNotFound
	}
	return a, nil
}

// fakeOrders mirrors the repo: unique payment id per group, guarded status update.
type fakeOrders struct {
	mu        sync.Mutex
	groups    []orders.Group
	rows      []orders.Row
	insertErr error
}

func (f *fakeOrders) InsertGroup(_ context.Context, g orders.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, existing := range f.groups {
		if g.GatewayPaymentID != "" && existing.GatewayPaymentID == g.GatewayPaymentID {
			return fmt.Errorf("%w: %s", orders.ErrDuplicatePayment, g.GatewayPaymentID)
		}
	}
	f.groups = append(f.groups, g)
	f.rows = append(f.rows, g.Rows...)
	return nil
}

func (f *fakeOrders) ExistsForPayment(_ context.Context, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.GatewayPaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) ListByPayment(_ context.Context, paymentID string) ([]orders.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []orders.Row{}
	for _, r := range f.rows {
		if r.GatewayPaymentID == paymentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, paymentID string, to orders.PaymentStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		if paymentID != "" && f.rows[i].GatewayPaymentID == paymentID && orders.CanTransition(f.rows[i].PaymentStatus, to) {
			f.rows[i].PaymentStatus = to
			n++
		}
	}
	return n, nil
}

func (f *fakeOrders) snapshot() ([]orders.Group, []orders.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orders.Group{}, f.groups...), append([]orders.Row{}, f.rows...)
}

type fakeAttempts struct {
	mu sync.Mutex
	m  map[string]Attempt
}

func newFakeAttempts() *fakeAttempts { return &fakeAttempts{m: map[string]Attempt{}} }

func (f *fakeAttempts) Create(_ context.Context, a Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[a.ID]; ok {
		return nil
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.CreatedAt
	f.m[a.ID] = a
	return nil
}

func (f *fakeAttempts) Get(_ context.Context, id string) (Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.m[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (f *fakeAttempts) Advance(_ context.Context, id string, to State, note string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.m[id]
	if !ok || !CanTransition(a.State, to) {
		return false, nil
	}
	a.State = to
	if note != "" {
		a.LastError = note
	}
	f.m[id] = a
	return true, nil
}

func (f *fakeAttempts) Note(_ context.Context, id, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.m[id]; ok {
		a.LastError = note
		f.m[id] = a
	}
	return nil
}

func (f *fakeAttempts) ListStale(_ context.Context, before time.Time, limit int) ([]Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attempt
	for _, a := range f.m {
		if a.Kind == KindOnline && (a.State == StateAwaitingGateway || a.State == StateVerified) && a.UpdatedAt.Before(before) {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAttempts) ListUncleared(_ context.Context, before time.Time, limit int) ([]Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attempt
	for _, a := range f.m {
		if a.State == StateMaterialized && a.UpdatedAt.Before(before) {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAttempts) state(id string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m[id].State
}

type fakeEvents struct {
	mu        sync.Mutex
	placed    []orders.Group
	statuses  []orders.PaymentStatus
	clearReqs []string
	err       error
}

func (f *fakeEvents) OrderPlaced(_ context.Context, g orders.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, g)
	return f.err
}

func (f *fakeEvents) PaymentStatusChanged(_ context.Context, _ string, status orders.PaymentStatus, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return f.err
}

func (f *fakeEvents) CartClearRequested(_ context.Context, userID, _, attemptID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearReqs = append(f.clearReqs, userID+"/"+attemptID)
	return f.err
}

type fixture struct {
	svc      *Service
	gw       *fakeGateway
	carts    *fakeCarts
	orders   *fakeOrders
	attempts *fakeAttempts
	events   *fakeEvents
	redis    *miniredis.Miniredis
}

func product(id string, price, discount int64) catalog.Product {
	return catalog.Product{
		ID: id, Name: "Product " + id, Images: []string{"https://img/" + id + ".png"},
		Price: decimal.NewFromInt(price), Discount: decimal.NewFromInt(discount),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		gw: newFakeGateway(),
		carts: &fakeCarts{lines: map[string][]cart.Line{
			"user-1": {
				{Product: product("A", 100, 10), Quantity: 2},
				{Product: product("B", 50, 0), Quantity: 1},
			},
		}},
		orders:   &fakeOrders{},
		attempts: newFakeAttempts(),
		events:   &fakeEvents{},
		redis:    mr,
	}
	f.svc = &Service{
		Gateway: f.gw,
		Carts:   f.carts,
		Addresses: fakeAddresses{
			"addr-1":   {ID: "addr-1", UserID: "user-1", Status: true},
			"addr-off": {ID: "addr-off", UserID: "user-1", Status: false},
			"addr-2":   {ID: "addr-2", UserID: "user-2", Status: true},
		},
		Orders:        f.orders,
		Attempts:      f.attempts,
		Events:        f.events,
		Dedup:         &redisx.Deduper{Client: rdb, Scope: "webhook"},
		Log:           zap.NewNop(),
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		Currency:      "INR",
	}
	return f
}

// intent creates an intent for user-1 and returns its id.
func (f *fixture) intent(t *testing.T) string {
	t.Helper()
	in, err := f.svc.CreateIntent(context.Background(), "user-1", "addr-1")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	return in.ID
}

var errBoom = errors.New("boom")
