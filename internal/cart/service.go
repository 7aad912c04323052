package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
)

type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Clear(ctx context.Context, userID string) error
}

type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Service adalah cart-contents provider utk checkout.
type Service struct {
	Store   Store
	Catalog Catalog
}

// Lines returns the user's cart joined with current catalog data, in cart order.
// A missing cart yields an empty slice.
func (s *Service) Lines(ctx context.Context, userID string) ([]Line, error) {
	c, err := s.Store.Get(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return []Line{}, nil
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductMissing, it.ProductID)
		}
		lines = append(lines, Line{Product: p, Quantity: it.Quantity})
	}
	return lines, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Store.Clear(ctx, userID)
}
