// Package pricing computes discounted prices and cart totals. Pure, no I/O.
package pricing

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/shopspring/decimal"
)

var ErrInvalidLine = errors.New("invalid cart line")

var hundred = decimal.NewFromInt(100)

type Totals struct {
	SubTotal decimal.Decimal `json:"subTotalAmt"`
	Total    decimal.Decimal `json:"totalAmt"`
}

// DiscountedPrice returns price minus ceil(price*discountPercent/100).
// The discount amount rounds up so the customer never gets more than the
// stated discount. Inputs are not clamped; see ValidateLine.
func DiscountedPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	off := price.Mul(discountPercent).Div(hundred).Ceil()
	return price.Sub(off)
}

func ValidateLine(l cart.Line) error {
	switch {
	case l.Quantity < 1:
		return fmt.Errorf("%w: product %s quantity %d", ErrInvalidLine, l.Product.ID, l.Quantity)
	case l.Product.Price.IsNegative():
		return fmt.Errorf("%w: product %s negative price", ErrInvalidLine, l.Product.ID)
	case l.Product.Discount.IsNegative() || l.Product.Discount.GreaterThan(hundred):
		return fmt.Errorf("%w: product %s discount %s outside [0,100]", ErrInvalidLine, l.Product.ID, l.Product.Discount)
	}
	return nil
}

// AggregateCartTotals: SubTotal tanpa diskon, Total = sum DiscountedPrice per line.
func AggregateCartTotals(lines []cart.Line) (Totals, error) {
	t := Totals{SubTotal: decimal.Zero, Total: decimal.Zero}
	for _, l := range lines {
		if err := ValidateLine(l); err != nil {
			return Totals{}, err
		}
		amount := l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		t.SubTotal = t.SubTotal.Add(amount)
		t.Total = t.Total.Add(DiscountedPrice(amount, l.Product.Discount))
	}
	return t, nil
}

// MinorUnits: 180.50 -> 18050 (paise).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
