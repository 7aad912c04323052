package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type checkoutService interface {
	CashOnDelivery(ctx context.Context, userID, addressID string) ([]orders.Row, error)
	CreateIntent(ctx context.Context, userID, addressID string) (gateway.Intent, error)
	VerifyPayment(ctx context.Context, userID string, in checkout.VerifyInput) (checkout.VerifyResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (checkout.WebhookResult, error)
}

type orderLister interface {
	ListOrders(ctx context.Context, userID string) ([]orders.OrderView, error)
}

type OrdersHandler struct {
	Checkout checkoutService
	Orders   orderLister
	KeyID    string // public key id, dikirim ke client utk buka checkout gateway
	Auth     func(http.Handler) http.Handler
	Log      *zap.Logger
}

type addressReq struct {
	AddressID string `json:"addressId"`
	// totalAmt dari client diabaikan; total selalu dihitung ulang di server
}

type intentResp struct {
	IntentID string `json:"intentId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"keyId"`
}

type verifyReq struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
	AddressID        string `json:"addressId"`
}

type verifyResp struct {
	PaymentStatus orders.PaymentStatus `json:"paymentStatus"`
	Data          []orders.Row         `json:"data"`
}

type dataResp struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// Register mounts /api/order. Webhook is outside Auth; it carries its own signature.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/order", func(r chi.Router) {
		r.Post("/webhook", h.webhook)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth)
			r.Post("/cash-on-delivery", h.cashOnDelivery)
			r.Post("/checkout", h.createIntent)
			r.Post("/verify-payment", h.verifyPayment)
			r.Get("/order-list", h.listOrders)
		})
	})
}

func (h *OrdersHandler) cashOnDelivery(w http.ResponseWriter, r *http.Request) {
	var req addressReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Checkout.CashOnDelivery(ctx, UserID(r.Context()), req.AddressID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResp{Message: "Order successfully", Data: rows})
}

func (h *OrdersHandler) createIntent(w http.ResponseWriter, r *http.Request) {
	var req addressReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	in, err := h.Checkout.CreateIntent(ctx, UserID(r.Context()), req.AddressID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResp{
		IntentID: in.ID, Amount: in.Amount, Currency: in.Currency, Receipt: in.Receipt, KeyID: h.KeyID,
	})
}

func (h *OrdersHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Checkout.VerifyPayment(ctx, UserID(r.Context()), checkout.VerifyInput{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		AddressID:        req.AddressID,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResp{PaymentStatus: res.PaymentStatus, Data: res.Rows})
}

// webhook: 401 kalau signature salah supaya gateway berhenti retry,
// 500 kalau gagal proses supaya gateway kirim ulang.
func (h *OrdersHandler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"received": false})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Checkout.HandleWebhook(ctx, body,
		r.Header.Get("X-Razorpay-Signature"), r.Header.Get("X-Razorpay-Event-Id"))
	log := logx.FromContext(r.Context(), h.Log)
	switch {
	case errors.Is(err, checkout.ErrSignature):
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"received": false})
	case errors.Is(err, checkout.ErrValidation):
		log.Warn("webhook rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]bool{"received": false})
	case err != nil:
		log.Error("webhook processing failed", zap.String("event", res.Event), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"received": false})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	views, err := h.Orders.ListOrders(ctx, UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResp{Data: views})
}
