package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
)

type rowLister interface {
	ListByUser(ctx context.Context, userID string) ([]Row, error)
}

type addressResolver interface {
	GetMany(ctx context.Context, ids []string) (map[string]address.Address, error)
}

// OrderView: Row dengan delivery_address sudah di-resolve (populate).
type OrderView struct {
	Row
	DeliveryAddressRef string           `json:"delivery_address_id"`
	DeliveryAddress    *address.Address `json:"delivery_address"`
}

type QueryService struct {
	Orders    rowLister
	Addresses addressResolver
}

// ListOrders returns the user's orders newest first. Addresses are resolved
// whatever their status, so soft-deleted ones still show on old orders.
func (q *QueryService) ListOrders(ctx context.Context, userID string) ([]OrderView, error) {
	if userID == "" {
		return nil, errors.New("list orders: user id required")
	}
	rows, err := q.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	seen := map[string]bool{}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if !seen[r.DeliveryAddressID] {
			seen[r.DeliveryAddressID] = true
			ids = append(ids, r.DeliveryAddressID)
		}
	}
	addrs, err := q.Addresses.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve addresses: %w", err)
	}

	out := make([]OrderView, 0, len(rows))
	for _, r := range rows {
		v := OrderView{Row: r, DeliveryAddressRef: r.DeliveryAddressID}
		if a, ok := addrs[r.DeliveryAddressID]; ok {
			v.DeliveryAddress = &a
		}
		out = append(out, v)
	}
	return out, nil
}
