package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// requestLogger: pengganti middleware.Logger, output zap JSON.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logx.FromContext(r.Context(), log).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError: satu-satunya tempat error domain diterjemahkan ke HTTP.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	code, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, checkout.ErrValidation):
		code, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, checkout.ErrSignature):
		code, kind = http.StatusUnauthorized, "signature_mismatch"
	case errors.Is(err, checkout.ErrAuthorization):
		code, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, checkout.ErrGateway):
		code, kind = http.StatusBadGateway, "gateway_error"
	case errors.Is(err, address.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	}

	msg := err.Error()
	if code >= 500 {
		logx.FromContext(r.Context(), log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorResp{Error: kind, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json", checkout.ErrValidation)
	}
	return nil
}
