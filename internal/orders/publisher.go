package orders

import (
	"context"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type producer interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header) error
}

// Publisher membungkus event order ke envelope v1 lalu kirim ke kafka.
type Publisher struct {
	Producer producer
	Service  string
	TraceID  func(ctx context.Context) string
}

func (p *Publisher) envelope(ctx context.Context, eventType, correlationID string, payload any) Envelope {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if p.TraceID != nil {
		ev.TraceID = p.TraceID(ctx)
	}
	return ev
}

func (p *Publisher) publish(topic string, key string, ev Envelope) error {
	return p.Producer.Publish(topic, PartitionKey(key), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}

func (p *Publisher) OrderPlaced(ctx context.Context, g Group) error {
	ids := make([]string, 0, len(g.Rows))
	var status PaymentStatus
	for _, r := range g.Rows {
		ids = append(ids, r.OrderID)
		status = r.PaymentStatus
	}
	ev := p.envelope(ctx, EventOrderPlaced, g.ID, OrderPlacedPayload{
		GroupID:          g.ID,
		UserID:           g.UserID,
		OrderIDs:         ids,
		PaymentMethod:    g.PaymentMethod,
		PaymentStatus:    status,
		GatewayPaymentID: g.GatewayPaymentID,
		SubTotal:         g.SubTotal.String(),
		Total:            g.Total.String(),
	})
	return p.publish(TopicOrderPlaced, g.ID, ev)
}

func (p *Publisher) PaymentStatusChanged(ctx context.Context, paymentID string, status PaymentStatus, n int64) error {
	ev := p.envelope(ctx, EventPaymentStatusChanged, paymentID, PaymentStatusChangedPayload{
		GatewayPaymentID: paymentID,
		Status:           status,
		RowsUpdated:      n,
	})
	return p.publish(TopicPaymentStatus, paymentID, ev)
}

func (p *Publisher) CartClearRequested(ctx context.Context, userID, groupID, attemptID, reason string) error {
	ev := p.envelope(ctx, EventCartClearRequested, groupID, CartClearRequestedPayload{
		UserID:    userID,
		GroupID:   groupID,
		AttemptID: attemptID,
		Reason:    reason,
	})
	return p.publish(TopicCartClearRequested, userID, ev)
}
