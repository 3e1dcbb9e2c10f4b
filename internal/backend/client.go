package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// API is the orchestration backend surface consumed by the flows.
type API interface {
	CreateAccount(ctx context.Context, address string) (created bool, err error)
	AddPaymentMethod(ctx context.Context, method NewPaymentMethod) (*PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, owner string) ([]PaymentMethod, error)
	CreateSession(ctx context.Context, req NewSession) (*Session, error)
	InitiateOnramp(ctx context.Context, req OnrampRequest) (*OnrampResponse, error)
	OnrampStatus(ctx context.Context, code string) (*SettlementStatus, error)
	PaymentStatus(ctx context.Context, code string) (*SettlementStatus, error)
	Providers(ctx context.Context) ([]Provider, error)
	Currencies(ctx context.Context) ([]Currency, error)
	OnrampTransactions(ctx context.Context, address string) ([]OnrampTransaction, error)
	PaymentTransactions(ctx context.Context, typ TransactionType, address string) ([]PaymentTransaction, error)
	Convert(ctx context.Context, req ConversionRequest) (*ConversionResponse, error)
}

// Options configures the backend client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the payment orchestration backend over HTTP.
type Client struct {
	opts   Options
	logger zerolog.Logger
	http   *http.Client
}

var _ API = (*Client)(nil)

// NewClient builds a backend client. BaseURL must be non-empty.
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "backend").Logger(),
		http:   &http.Client{Timeout: opts.Timeout},
	}, nil
}

// CreateAccount registers the wallet address with the backend. The backend
// answers 500 for an address it already knows, which callers treat as
// success with created=false.
func (c *Client) CreateAccount(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, fmt.Errorf("backend: address is required")
	}
	body := map[string]string{"address": address}
	resp, err := c.do(ctx, http.MethodPost, "/account", body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusInternalServerError:
		// Already registered.
		io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode >= 400:
		return false, parseHTTPError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return true, nil
}

// AddPaymentMethod registers a mobile-money identity for the owner address.
func (c *Client) AddPaymentMethod(ctx context.Context, method NewPaymentMethod) (*PaymentMethod, error) {
	if method.Identity == "" {
		return nil, fmt.Errorf("backend: payment method identity is required")
	}
	if method.ProviderID == "" {
		return nil, fmt.Errorf("backend: provider id is required")
	}
	var out PaymentMethod
	if err := c.doJSON(ctx, http.MethodPost, "/payment-method", method, &out); err != nil {
		return nil, err
	}
	if out.MethodID() == "" {
		return nil, fmt.Errorf("backend: payment method response missing id")
	}
	return &out, nil
}

// ListPaymentMethods returns the owner's registered methods, deduplicated by
// identity keeping the most recently created entry.
func (c *Client) ListPaymentMethods(ctx context.Context, owner string) ([]PaymentMethod, error) {
	var raw []PaymentMethod
	path := "/payment-methods/" + url.PathEscape(owner)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	latest := make(map[string]PaymentMethod, len(raw))
	for _, m := range raw {
		prev, ok := latest[m.Identity]
		if !ok || m.CreatedAt.After(prev.CreatedAt) {
			latest[m.Identity] = m
		}
	}
	out := make([]PaymentMethod, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateSession opens a payment session. The returned session must carry a
// non-empty code; everything downstream keys off it.
func (c *Client) CreateSession(ctx context.Context, req NewSession) (*Session, error) {
	var out Session
	if err := c.doJSON(ctx, http.MethodPost, "/create-payment-session", req, &out); err != nil {
		return nil, err
	}
	if out.Code() == "" {
		return nil, fmt.Errorf("backend: payment session response missing session id")
	}
	return &out, nil
}

// InitiateOnramp kicks off a fiat collection and returns the tracking code.
func (c *Client) InitiateOnramp(ctx context.Context, req OnrampRequest) (*OnrampResponse, error) {
	var out OnrampResponse
	if err := c.doJSON(ctx, http.MethodPost, "/on-ramp", req, &out); err != nil {
		return nil, err
	}
	if out.Code == "" {
		return nil, fmt.Errorf("backend: onramp response missing code")
	}
	return &out, nil
}

// OnrampStatus fetches the current settlement state of an onramp.
func (c *Client) OnrampStatus(ctx context.Context, code string) (*SettlementStatus, error) {
	var out SettlementStatus
	if err := c.getJSON(ctx, "/status/onramp/"+url.PathEscape(code), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentStatus fetches the current settlement state of a payment.
func (c *Client) PaymentStatus(ctx context.Context, code string) (*SettlementStatus, error) {
	var out SettlementStatus
	if err := c.getJSON(ctx, "/transaction/payment/"+url.PathEscape(code), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Providers returns the mobile-money provider catalog.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	var out []Provider
	if err := c.getJSONRetry(ctx, "/providers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Currencies returns the currency catalog (fiat and crypto entries mixed).
func (c *Client) Currencies(ctx context.Context) ([]Currency, error) {
	var out []Currency
	if err := c.getJSONRetry(ctx, "/currencies", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OnrampTransactions lists the address's onramp history.
func (c *Client) OnrampTransactions(ctx context.Context, address string) ([]OnrampTransaction, error) {
	var out []OnrampTransaction
	path := fmt.Sprintf("/transactions/%s/%s", TransactionOnramp, url.PathEscape(address))
	if err := c.getJSONRetry(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentTransactions lists the address's payment history for the given type.
func (c *Client) PaymentTransactions(ctx context.Context, typ TransactionType, address string) ([]PaymentTransaction, error) {
	var out []PaymentTransaction
	path := fmt.Sprintf("/transactions/%s/%s", typ, url.PathEscape(address))
	if err := c.getJSONRetry(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Convert asks the backend for a conversion quote.
func (c *Client) Convert(ctx context.Context, req ConversionRequest) (*ConversionResponse, error) {
	var out ConversionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/conversion", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.APIKey != "" {
		req.Header.Set("x-api-key", c.opts.APIKey)
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}
	c.logger.Debug().Str("method", method).Str("path", path).Msg("backend request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return parseHTTPError(resp)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// getJSONRetry wraps idempotent catalog reads with a short backoff.
func (c *Client) getJSONRetry(ctx context.Context, path string, out any) error {
	return retry.Do(
		func() error { return c.getJSON(ctx, path, out) },
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: unexpected status %s", e.Status)
}

func parseHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	herr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			herr.Message = payload.Message
		} else if payload.Error != "" {
			herr.Message = payload.Error
		}
	}
	if herr.Message == "" && len(body) > 0 {
		herr.Message = string(bytes.TrimSpace(body))
	}
	return herr
}
