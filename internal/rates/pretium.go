package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PretiumOptions configures the Pretium settlement rail client.
type PretiumOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PretiumClient queries the Pretium API for exchange rates and mobile-money
// account validation. Authentication is a static x-api-key header.
type PretiumClient struct {
	opts   PretiumOptions
	logger zerolog.Logger
	http   *http.Client
}

// NewPretiumClient builds a Pretium client.
func NewPretiumClient(opts PretiumOptions, logger zerolog.Logger) (*PretiumClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("pretium: base url is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("pretium: api key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &PretiumClient{
		opts:   opts,
		logger: logger.With().Str("component", "pretium").Logger(),
		http:   &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Rate is one fiat exchange rate quote.
type Rate struct {
	Buying  decimal.Decimal
	Selling decimal.Decimal
	Quoted  decimal.Decimal
}

// ExchangeRate returns the current rates for a fiat currency code.
func (p *PretiumClient) ExchangeRate(ctx context.Context, currency string) (*Rate, error) {
	if currency == "" {
		return nil, fmt.Errorf("pretium: currency is required")
	}
	body := map[string]string{"currency_code": strings.ToUpper(currency)}
	var out struct {
		Data struct {
			BuyingRate  json.Number `json:"buying_rate"`
			SellingRate json.Number `json:"selling_rate"`
			QuotedRate  json.Number `json:"quoted_rate"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/v1/exchange-rate", body, &out); err != nil {
		return nil, err
	}
	buying, err := decimal.NewFromString(out.Data.BuyingRate.String())
	if err != nil {
		return nil, fmt.Errorf("pretium: bad buying rate %q: %w", out.Data.BuyingRate, err)
	}
	if !buying.IsPositive() {
		return nil, fmt.Errorf("pretium: non-positive rate %s for %s", buying, currency)
	}
	rate := &Rate{Buying: buying}
	if out.Data.SellingRate != "" {
		if rate.Selling, err = decimal.NewFromString(out.Data.SellingRate.String()); err != nil {
			return nil, fmt.Errorf("pretium: bad selling rate %q: %w", out.Data.SellingRate, err)
		}
	}
	if out.Data.QuotedRate != "" {
		if rate.Quoted, err = decimal.NewFromString(out.Data.QuotedRate.String()); err != nil {
			return nil, fmt.Errorf("pretium: bad quoted rate %q: %w", out.Data.QuotedRate, err)
		}
	}
	return rate, nil
}

// ValidationRequest identifies a mobile-money recipient to resolve.
type ValidationRequest struct {
	Type          string `json:"type,omitempty"`
	Shortcode     string `json:"shortcode"`
	MobileNetwork string `json:"mobile_network,omitempty"`
	CurrencyCode  string `json:"-"`
}

// ValidatedAccount is the registered holder Pretium resolves for a recipient.
type ValidatedAccount struct {
	Name   string
	Status string
}

// ValidateAccount resolves the registered holder name for a recipient.
// Advisory only; flows display the name, they do not gate on it. KES uses
// the bare validation endpoint, other currencies append their code.
func (p *PretiumClient) ValidateAccount(ctx context.Context, req ValidationRequest) (*ValidatedAccount, error) {
	if req.Shortcode == "" {
		return nil, fmt.Errorf("pretium: shortcode is required")
	}
	path := "/v1/validation"
	cur := strings.ToUpper(req.CurrencyCode)
	if cur != "" && cur != "KES" {
		path += "/" + cur
	}
	var out struct {
		Data struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := p.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &ValidatedAccount{Name: out.Data.Name, Status: out.Data.Status}, nil
}

func (p *PretiumClient) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pretium: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("pretium: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.opts.APIKey)
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("pretium: POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("pretium: POST %s: status %s: %s", path, resp.Status, bytes.TrimSpace(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pretium: decode %s response: %w", path, err)
	}
	return nil
}
