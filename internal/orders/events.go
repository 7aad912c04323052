package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced          = "OrderPlaced"
	EventPaymentStatusChanged = "PaymentStatusChanged"
	EventCartClearRequested   = "CartClearRequested"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // group id / payment id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// ---- Payload tipe per event ----

type OrderPlacedPayload struct {
	GroupID          string        `json:"group_id"`
	UserID           string        `json:"user_id"`
	OrderIDs         []string      `json:"order_ids"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	SubTotal         string        `json:"sub_total"`
	Total            string        `json:"total"`
}

type PaymentStatusChangedPayload struct {
	GatewayPaymentID string        `json:"gateway_payment_id"`
	Status           PaymentStatus `json:"status"`
	RowsUpdated      int64         `json:"rows_updated"`
}

type CartClearRequestedPayload struct {
	UserID    string `json:"user_id"`
	GroupID   string `json:"group_id"`
	AttemptID string `json:"attempt_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
