package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCashOnDelivery PaymentMethod = "cash-on-delivery"
	MethodOnlineGateway  PaymentMethod = "online-gateway"
	MethodOther          PaymentMethod = "other"
)

// ProductSnapshot di-embed saat checkout; edit katalog setelahnya tidak ngaruh.
type ProductSnapshot struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Images    []string        `json:"image"`
	UnitPrice decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
}

// Row: satu baris per cart line. Hanya PaymentStatus yang boleh berubah.
type Row struct {
	OrderID           string          `json:"orderId"`
	GroupID           string          `json:"orderGroupId"`
	UserID            string          `json:"userId"`
	Product           ProductSnapshot `json:"product_details"`
	Quantity          int             `json:"quantity"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	GatewayOrderID    string          `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID  string          `json:"paymentId,omitempty"`
	GatewaySignature  string          `json:"-"`
	DeliveryAddressID string          `json:"delivery_address"`
	SubTotal          decimal.Decimal `json:"subTotalAmt"` // total group, sama di semua row
	Total             decimal.Decimal `json:"totalAmt"`    // total group, sama di semua row
	InvoiceReceipt    string          `json:"invoice_receipt"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Group: hasil satu transaksi checkout.
type Group struct {
	ID               string
	UserID           string
	PaymentMethod    PaymentMethod
	GatewayOrderID   string
	GatewayPaymentID string
	SubTotal         decimal.Decimal
	Total            decimal.Decimal
	CreatedAt        time.Time
	Rows             []Row
}

type PaymentMeta struct {
	Method           PaymentMethod
	Status           PaymentStatus
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	Receipt          string
}
