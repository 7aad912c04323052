package gateway

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventRefundProcessed   = "refund.processed"
)

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Event: body webhook {event, payload:{payment:{entity}, refund:{entity}}}.
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity Payment `json:"entity"`
		} `json:"payment,omitempty"`
		Refund *struct {
			Entity Refund `json:"entity"`
		} `json:"refund,omitempty"`
	} `json:"payload"`
}

func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode webhook event: %w", err)
	}
	if ev.Event == "" {
		return Event{}, fmt.Errorf("decode webhook event: missing event type")
	}
	return ev, nil
}

// Payment returns the payment entity, if present.
func (e Event) Payment() (Payment, bool) {
	if e.Payload.Payment == nil || e.Payload.Payment.Entity.ID == "" {
		return Payment{}, false
	}
	return e.Payload.Payment.Entity, true
}

func (e Event) Refund() (Refund, bool) {
	if e.Payload.Refund == nil || e.Payload.Refund.Entity.PaymentID == "" {
		return Refund{}, false
	}
	return e.Payload.Refund.Entity, true
}
