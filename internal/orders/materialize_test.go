package orders

import (
	"strings"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLine(id string, price, discount int64, qty int) cart.Line {
	return cart.Line{
		Product: catalog.Product{
			ID:       id,
			Name:     "Product " + id,
			Images:   []string{"https://cdn.example/" + id + ".jpg"},
			Price:    decimal.NewFromInt(price),
			Discount: decimal.NewFromInt(discount),
		},
		Quantity: qty,
	}
}

func codMeta() PaymentMeta {
	return PaymentMeta{Method: MethodCashOnDelivery, Status: PaymentPending}
}

func TestMaterialize_SingleLineScenario(t *testing.T) {
	g, err := Materialize([]cart.Line{newLine("A", 100, 10, 2)}, "user-1", "addr-1", codMeta())
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)

	row := g.Rows[0]
	assert.True(t, decimal.NewFromInt(200).Equal(row.SubTotal))
	assert.True(t, decimal.NewFromInt(180).Equal(row.Total))
	assert.Equal(t, 2, row.Quantity)
	assert.Equal(t, "Product A", row.Product.Name)
	assert.Equal(t, "addr-1", row.DeliveryAddressID)
	assert.Equal(t, g.ID, row.GroupID)
}

func TestMaterialize_NLinesShareGroupTotals(t *testing.T) {
	lines := []cart.Line{newLine("A", 100, 10, 2), newLine("B", 40, 0, 1), newLine("C", 15, 50, 3)}
	g, err := Materialize(lines, "user-1", "addr-1", codMeta())
	require.NoError(t, err)
	require.Len(t, g.Rows, len(lines))

	want, err := pricing.AggregateCartTotals(lines)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, row := range g.Rows {
		assert.True(t, want.SubTotal.Equal(row.SubTotal))
		assert.True(t, want.Total.Equal(row.Total))
		assert.Equal(t, g.ID, row.GroupID)
		assert.True(t, strings.HasPrefix(row.OrderID, "ORD-"))
		ids[row.OrderID] = true
	}
	assert.Len(t, ids, len(lines), "order ids must be unique")
	assert.True(t, want.Total.Equal(g.Total))
}

func TestMaterialize_EmptyCart(t *testing.T) {
	g, err := Materialize(nil, "user-1", "addr-1", codMeta())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, g.Rows)
}

func TestMaterialize_SnapshotIsCopied(t *testing.T) {
	l := newLine("A", 10, 0, 1)
	g, err := Materialize([]cart.Line{l}, "user-1", "addr-1", codMeta())
	require.NoError(t, err)

	l.Product.Images[0] = "changed"
	assert.Equal(t, "https://cdn.example/A.jpg", g.Rows[0].Product.Images[0])
}

func TestMaterialize_OnlineMeta(t *testing.T) {
	meta := PaymentMeta{
		Method:           MethodOnlineGateway,
		Status:           PaymentCompleted,
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig",
		Receipt:          "receipt_1",
	}
	g, err := Materialize([]cart.Line{newLine("A", 10, 0, 1)}, "user-1", "addr-1", meta)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", g.GatewayPaymentID)
	assert.Equal(t, "pay_1", g.Rows[0].GatewayPaymentID)
	assert.Equal(t, PaymentCompleted, g.Rows[0].PaymentStatus)
	assert.Equal(t, "receipt_1", g.Rows[0].InvoiceReceipt)
}

func TestMaterialize_InvalidMeta(t *testing.T) {
	lines := []cart.Line{newLine("A", 10, 0, 1)}
	cases := map[string]PaymentMeta{
		"online without payment id": {Method: MethodOnlineGateway, Status: PaymentPending, GatewayOrderID: "order_1"},
		"cod with gateway id":       {Method: MethodCashOnDelivery, Status: PaymentPending, GatewayPaymentID: "pay_1"},
		"unknown method":            {Method: "barter", Status: PaymentPending},
		"unknown status":            {Method: MethodCashOnDelivery, Status: "lost"},
	}
	for name, meta := range cases {
		_, err := Materialize(lines, "user-1", "addr-1", meta)
		assert.ErrorIs(t, err, ErrInvalidPaymentMeta, name)
	}

	_, err := Materialize(lines, "user-1", "", codMeta())
	assert.ErrorIs(t, err, ErrInvalidPaymentMeta)
}

func TestMaterialize_InvalidLine(t *testing.T) {
	_, err := Materialize([]cart.Line{newLine("A", 10, 0, 0)}, "user-1", "addr-1", codMeta())
	assert.ErrorIs(t, err, pricing.ErrInvalidLine)
}
