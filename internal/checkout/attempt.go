package checkout

import (
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateInitiated       State = "INITIATED"
	StateAwaitingGateway State = "AWAITING_GATEWAY"
	StateVerified        State = "VERIFIED"
	StateMaterialized    State = "MATERIALIZED"
	StateCartCleared     State = "CART_CLEARED"
	StateFailed          State = "FAILED"
)

// COD lompat INITIATED -> MATERIALIZED (tidak ada gateway).
var validNext = map[State]map[State]bool{
	StateInitiated:       {StateAwaitingGateway: true, StateMaterialized: true, StateFailed: true},
	StateAwaitingGateway: {StateVerified: true, StateFailed: true},
	StateVerified:        {StateMaterialized: true, StateFailed: true},
	StateMaterialized:    {StateCartCleared: true},
	StateCartCleared:     {},
	StateFailed:          {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

func sourcesOf(to State) []string {
	var out []string
	for from, next := range validNext {
		if next[to] {
			out = append(out, string(from))
		}
	}
	return out
}

type Kind string

const (
	KindCashOnDelivery Kind = "cod"
	KindOnline         Kind = "online"
)

// Attempt: satu percobaan checkout. ID = group id (COD) atau gateway order id (online).
type Attempt struct {
	ID          string
	Kind        Kind
	UserID      string
	AddressID   string
	State       State
	Receipt     string
	AmountMinor int64
	Currency    string
	Total       decimal.Decimal
	Cart        []cart.Line // snapshot saat intent dibuat
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
