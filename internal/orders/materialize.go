package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidPaymentMeta = errors.New("invalid payment metadata")
)

// NewOrderID: ORD-<ULID>, unik & gampang di-grep di log.
func NewOrderID() string { return "ORD-" + ulid.Make().String() }

var now = func() time.Time { return time.Now().UTC() }

func validateMeta(m PaymentMeta) error {
	if !m.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidPaymentMeta, m.Status)
	}
	switch m.Method {
	case MethodOnlineGateway:
		if m.GatewayOrderID == "" || m.GatewayPaymentID == "" {
			return fmt.Errorf("%w: online payment needs gateway order and payment id", ErrInvalidPaymentMeta)
		}
	case MethodCashOnDelivery, MethodOther:
		if m.GatewayOrderID != "" || m.GatewayPaymentID != "" || m.GatewaySignature != "" {
			return fmt.Errorf("%w: %s must not carry gateway ids", ErrInvalidPaymentMeta, m.Method)
		}
	default:
		return fmt.Errorf("%w: method %q", ErrInvalidPaymentMeta, m.Method)
	}
	return nil
}

// Materialize builds one Row per cart line. All rows share the group id and
// the group totals. Nothing is persisted here.
func Materialize(lines []cart.Line, userID, addressID string, meta PaymentMeta) (Group, error) {
	if len(lines) == 0 {
		return Group{}, ErrEmptyCart
	}
	if userID == "" || addressID == "" {
		return Group{}, fmt.Errorf("%w: user and address are required", ErrInvalidPaymentMeta)
	}
	if err := validateMeta(meta); err != nil {
		return Group{}, err
	}
	totals, err := pricing.AggregateCartTotals(lines)
	if err != nil {
		return Group{}, err
	}

	ts := now()
	g := Group{
		ID:               uuid.NewString(),
		UserID:           userID,
		PaymentMethod:    meta.Method,
		GatewayOrderID:   meta.GatewayOrderID,
		GatewayPaymentID: meta.GatewayPaymentID,
		SubTotal:         totals.SubTotal,
		Total:            totals.Total,
		CreatedAt:        ts,
		Rows:             make([]Row, 0, len(lines)),
	}
	for _, l := range lines {
		g.Rows = append(g.Rows, Row{
			OrderID: NewOrderID(),
			GroupID: g.ID,
			UserID:  userID,
			Product: ProductSnapshot{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Images:    append([]string{}, l.Product.Images...),
				UnitPrice: l.Product.Price,
				Discount:  l.Product.Discount,
			},
			Quantity:          l.Quantity,
			PaymentMethod:     meta.Method,
			PaymentStatus:     meta.Status,
			GatewayOrderID:    meta.GatewayOrderID,
			GatewayPaymentID:  meta.GatewayPaymentID,
			GatewaySignature:  meta.GatewaySignature,
			DeliveryAddressID: addressID,
			SubTotal:          totals.SubTotal,
			Total:             totals.Total,
			InvoiceReceipt:    meta.Receipt,
			CreatedAt:         ts,
			UpdatedAt:         ts,
		})
	}
	return g, nil
}
