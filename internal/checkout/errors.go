package checkout

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
)

// Error taxonomy at the orchestrator boundary. Everything returned by
// Service wraps exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrGateway       = errors.New("gateway error")
	ErrSignature     = errors.New("signature mismatch")
	ErrAuthorization = errors.New("not authorized")
	ErrPersistence   = errors.New("persistence error")
)

// classify maps collaborator errors onto the taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrValidation, ErrGateway, ErrSignature, ErrAuthorization, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidPaymentMeta),
		errors.Is(err, pricing.ErrInvalidLine),
		errors.Is(err, cart.ErrProductMissing),
		errors.Is(err, address.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", ErrValidation, op, err)
	case errors.Is(err, gateway.ErrGateway),
		errors.Is(err, gateway.ErrInvalidMetadata):
		return fmt.Errorf("%w: %s: %w", ErrGateway, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
}
