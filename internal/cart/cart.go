package cart

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
)

var (
	ErrCartNotFound   = errors.New("cart not found")
	ErrProductMissing = errors.New("cart references a product missing from catalog")
)

type Item struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Cart: satu dokumen per user.
type Cart struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Items     []Item    `bson:"items" json:"items"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Line: item cart + snapshot produk dari katalog saat dibaca.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}
