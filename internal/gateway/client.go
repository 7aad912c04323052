package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway http %d: %s %s", e.Status, e.Code, e.Description)
}

// errCallerGone marks a call abandoned by the caller's context; the gateway
// itself said nothing, so the breaker must not count it.
var errCallerGone = errors.New("caller context done")

// Client talks to the Razorpay REST API. Every call goes through one
// circuit breaker; only transport errors and 5xx count as failures.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker[[]byte]
	log       *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       log,
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if errors.Is(err, errCallerGone) || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// KeyID is public; the storefront client needs it to open checkout.
func (c *Client) KeyID() string { return c.keyID }

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.cb.Execute(func() ([]byte, error) {
		var rdr io.Reader
		if in != nil {
			b, err := json.Marshal(in)
			if err != nil {
				return nil, err
			}
			rdr = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.keyID, c.keySecret)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, err)
			}
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, err)
			}
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			apiErr := &APIError{Status: resp.StatusCode}
			var e struct {
				Error struct {
					Code        string `json:"code"`
					Description string `json:"description"`
				} `json:"error"`
			}
			if json.Unmarshal(b, &e) == nil {
				apiErr.Code, apiErr.Description = e.Error.Code, e.Error.Description
			}
			return nil, apiErr
		}
		return b, nil
	})
	if err != nil {
		c.log.Warn("gateway call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrGateway, method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrGateway, path, err)
	}
	return nil
}

func (c *Client) CreateIntent(ctx context.Context, r IntentRequest) (Intent, error) {
	if err := r.Metadata.Validate(); err != nil {
		return Intent{}, err
	}
	if r.AmountMinor <= 0 {
		return Intent{}, fmt.Errorf("%w: amount must be positive", ErrGateway)
	}
	in := map[string]any{
		"amount":   r.AmountMinor,
		"currency": r.Currency,
		"receipt":  r.Receipt,
		"notes":    r.Metadata,
	}
	var intent Intent
	if err := c.do(ctx, http.MethodPost, "/v1/orders", in, &intent); err != nil {
		return Intent{}, err
	}
	if intent.ID == "" {
		return Intent{}, fmt.Errorf("%w: no intent returned", ErrGateway)
	}
	return intent, nil
}

// FetchIntent returns the intent with its metadata validated.
func (c *Client) FetchIntent(ctx context.Context, id string) (Intent, error) {
	var intent Intent
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, &intent); err != nil {
		return Intent{}, err
	}
	if err := intent.Metadata.Validate(); err != nil {
		return Intent{}, fmt.Errorf("intent %s: %w", id, err)
	}
	return intent, nil
}

func (c *Client) FetchPayment(ctx context.Context, id string) (Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (c *Client) ListIntentPayments(ctx context.Context, intentID string) ([]Payment, error) {
	var out struct {
		Items []Payment `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(intentID)+"/payments", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
