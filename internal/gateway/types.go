package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrGateway         = errors.New("payment gateway error")
	ErrInvalidMetadata = errors.New("intent metadata invalid")
)

// Payment statuses as reported by the gateway.
const (
	PaymentCreated    = "created"
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

// Metadata is carried in the intent notes so verify/webhook never trust
// client supplied totals or users.
type Metadata struct {
	UserID      string          `json:"userId"`
	AddressID   string          `json:"addressId"`
	TotalAmount decimal.Decimal `json:"totalAmt"`
}

// UnmarshalJSON: gateway mengembalikan notes kosong sebagai [] bukan {}.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '[' {
		*m = Metadata{}
		return nil
	}
	type alias Metadata
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = Metadata(a)
	return nil
}

func (m Metadata) Validate() error {
	if m.UserID == "" || m.AddressID == "" {
		return fmt.Errorf("%w: userId and addressId required", ErrInvalidMetadata)
	}
	if m.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: negative totalAmt", ErrInvalidMetadata)
	}
	return nil
}

type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Metadata    Metadata
}

type Intent struct {
	ID       string   `json:"id"`
	Amount   int64    `json:"amount"`
	Currency string   `json:"currency"`
	Receipt  string   `json:"receipt"`
	Status   string   `json:"status"`
	Metadata Metadata `json:"notes"`
}

type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

func (p Payment) Captured() bool { return p.Status == PaymentCaptured }
