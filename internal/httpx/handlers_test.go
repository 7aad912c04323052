package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("jwt-test-secret")

type fakeCheckout struct {
	codErr     error
	webhookErr error
	gotUser    string
	gotVerify  checkout.VerifyInput
	gotEventID string
}

func (f *fakeCheckout) CashOnDelivery(_ context.Context, userID, addressID string) ([]orders.Row, error) {
	f.gotUser = userID
	if f.codErr != nil {
		return nil, f.codErr
	}
	return []orders.Row{{OrderID: "ORD-1", UserID: userID, DeliveryAddressID: addressID, PaymentStatus: orders.PaymentPending}}, nil
}

func (f *fakeCheckout) CreateIntent(_ context.Context, userID, _ string) (gateway.Intent, error) {
	f.gotUser = userID
	return gateway.Intent{ID: "order_1", Amount: 23000, Currency: "INR", Receipt: "receipt_1"}, nil
}

func (f *fakeCheckout) VerifyPayment(_ context.Context, userID string, in checkout.VerifyInput) (checkout.VerifyResult, error) {
	f.gotUser, f.gotVerify = userID, in
	return checkout.VerifyResult{PaymentStatus: orders.PaymentCompleted, Rows: []orders.Row{{OrderID: "ORD-1"}}, Created: true}, nil
}

func (f *fakeCheckout) HandleWebhook(_ context.Context, _ []byte, _, eventID string) (checkout.WebhookResult, error) {
	f.gotEventID = eventID
	return checkout.WebhookResult{Event: gateway.EventPaymentCaptured, Handled: f.webhookErr == nil}, f.webhookErr
}

type fakeOrderList struct{}

func (fakeOrderList) ListOrders(_ context.Context, userID string) ([]orders.OrderView, error) {
	return []orders.OrderView{{
		Row:                orders.Row{OrderID: "ORD-9", UserID: userID, DeliveryAddressID: "addr-1"},
		DeliveryAddressRef: "addr-1",
		DeliveryAddress:    &address.Address{ID: "addr-1", City: "Pune"},
	}}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) List(context.Context) ([]catalog.Product, error) {
	return []catalog.Product{{ID: "A", Name: "Tea", Price: decimal.NewFromInt(100)}}, nil
}

type fakeAddressStore struct{ disabled []string }

func (f *fakeAddressStore) Disable(_ context.Context, userID, id string) error {
	if id != "addr-1" || userID != "user-1" {
		return address.ErrNotFound
	}
	f.disabled = append(f.disabled, id)
	return nil
}

func token(t *testing.T, userID string, key []byte) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, co *fakeCheckout) (*httptest.Server, *fakeAddressStore) {
	t.Helper()
	log := zaptest.NewLogger(t)
	addrs := &fakeAddressStore{}
	r := NewRouter(log)
	(&OrdersHandler{Checkout: co, Orders: fakeOrderList{}, KeyID: "rzp_test_key", Auth: Auth(secret), Log: log}).Register(r)
	(&CatalogHandler{Products: fakeCatalog{}, Addresses: addrs, Auth: Auth(secret), Log: log}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, addrs
}

func do(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func bearer(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token(t, "user-1", secret)}
}

func TestAuth_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCheckout{})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/order/order-list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/order/order-list", "",
		map[string]string{"Authorization": "Bearer " + token(t, "user-1", []byte("other"))})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_CookieToken(t *testing.T) {
	co := &fakeCheckout{}
	srv, _ := newTestServer(t, co)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/order/cash-on-delivery", `{"addressId":"addr-1"}`,
		map[string]string{"Cookie": "accessToken=" + token(t, "user-cookie", secret)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-cookie", co.gotUser)
}

func TestCashOnDelivery_OK(t *testing.T) {
	co := &fakeCheckout{}
	srv, _ := newTestServer(t, co)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/order/cash-on-delivery", `{"addressId":"addr-1"}`, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "ORD-1", data[0].(map[string]any)["orderId"])
	assert.Equal(t, "user-1", co.gotUser)
}

func TestCashOnDelivery_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{fmt.Errorf("%w: cart is empty", checkout.ErrValidation), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: intent", checkout.ErrAuthorization), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: timeout", checkout.ErrGateway), http.StatusBadGateway, "gateway_error"},
		{fmt.Errorf("%w: insert orders: conn reset", checkout.ErrPersistence), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeCheckout{codErr: tc.err})
			resp, body := do(t, http.MethodPost, srv.URL+"/api/order/cash-on-delivery", `{"addressId":"addr-1"}`, bearer(t))
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.Equal(t, tc.kind, body["error"])
			if tc.code >= 500 {
				assert.NotContains(t, body["message"], "conn reset")
			}
		})
	}
}

func TestCashOnDelivery_BadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCheckout{})
	resp, body := do(t, http.MethodPost, srv.URL+"/api/order/cash-on-delivery", `{`, bearer(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])
}

func TestCreateIntent_ReturnsKeyID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCheckout{})
	resp, body := do(t, http.MethodPost, srv.URL+"/api/order/checkout", `{"addressId":"addr-1","totalAmt":1}`, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "order_1", body["intentId"])
	assert.EqualValues(t, 23000, body["amount"])
	assert.Equal(t, "rzp_test_key", body["keyId"])
}

func TestVerifyPayment_PassesCallbackFields(t *testing.T) {
	co := &fakeCheckout{}
	srv, _ := newTestServer(t, co)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/order/verify-payment",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"abc","addressId":"addr-1"}`, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["paymentStatus"])
	assert.Equal(t, checkout.VerifyInput{GatewayOrderID: "order_1", GatewayPaymentID: "pay_1", Signature: "abc", AddressID: "addr-1"}, co.gotVerify)
}

func TestWebhook_StatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		received bool
	}{
		{"ok", nil, http.StatusOK, true},
		{"bad signature", fmt.Errorf("%w: webhook", checkout.ErrSignature), http.StatusUnauthorized, false},
		{"malformed", fmt.Errorf("%w: decode", checkout.ErrValidation), http.StatusBadRequest, false},
		{"db down", fmt.Errorf("%w: insert", checkout.ErrPersistence), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			co := &fakeCheckout{webhookErr: tc.err}
			srv, _ := newTestServer(t, co)
			// webhook tanpa JWT
			resp, body := do(t, http.MethodPost, srv.URL+"/api/order/webhook", `{"event":"payment.captured"}`,
				map[string]string{"X-Razorpay-Signature": "sig", "X-Razorpay-Event-Id": "evt_1"})
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.Equal(t, tc.received, body["received"])
			assert.Equal(t, "evt_1", co.gotEventID)
		})
	}
}

func TestOrderList_ResolvedAddress(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCheckout{})
	resp, body := do(t, http.MethodGet, srv.URL+"/api/order/order-list", "", bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "ORD-9", first["orderId"])
	assert.Equal(t, "Pune", first["delivery_address"].(map[string]any)["city"])
}

func TestProductsAndAddressDisable(t *testing.T) {
	srv, addrs := newTestServer(t, &fakeCheckout{})

	resp, body := do(t, http.MethodGet, srv.URL+"/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/address/addr-1", "", bearer(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"addr-1"}, addrs.disabled)

	resp, body = do(t, http.MethodDelete, srv.URL+"/api/address/addr-404", "", bearer(t))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCheckout{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
