package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type productLister interface {
	List(ctx context.Context) ([]catalog.Product, error)
}

type addressDisabler interface {
	Disable(ctx context.Context, userID, id string) error
}

// CatalogHandler: read katalog + soft delete alamat. CRUD lain di luar service ini.
type CatalogHandler struct {
	Products  productLister
	Addresses addressDisabler
	Auth      func(http.Handler) http.Handler
	Log       *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.With(h.Auth).Delete("/api/address/{id}", h.disableAddress)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResp{Data: ps})
}

func (h *CatalogHandler) disableAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Addresses.Disable(ctx, UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResp{Message: "Address remove", Data: map[string]string{"id": chi.URLParam(r, "id")}})
}
