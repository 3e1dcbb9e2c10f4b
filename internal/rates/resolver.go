package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
)

// Quote is a conversion result with the USD legs used to derive it.
type Quote struct {
	From         string
	To           string
	Amount       decimal.Decimal
	Converted    decimal.Decimal
	FromUSDQuote decimal.Decimal
	ToUSDQuote   decimal.Decimal
}

// Resolver converts an amount between two currencies.
type Resolver interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Quote, error)
}

// BackendResolver answers conversions through the orchestration backend.
type BackendResolver struct {
	api    backend.API
	logger zerolog.Logger
}

var _ Resolver = (*BackendResolver)(nil)

// NewBackendResolver builds a resolver on top of the backend API.
func NewBackendResolver(api backend.API, logger zerolog.Logger) *BackendResolver {
	return &BackendResolver{
		api:    api,
		logger: logger.With().Str("component", "rates").Logger(),
	}
}

// Convert quotes a from→to conversion. Currency codes are lowercased on the
// wire; amounts must be positive and a non-positive converted amount is
// treated as an upstream fault rather than surfaced to the caller.
func (r *BackendResolver) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Quote, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("rates: both currencies are required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("rates: amount must be positive, got %s", amount)
	}
	resp, err := r.api.Convert(ctx, backend.ConversionRequest{
		From:   strings.ToLower(from),
		To:     strings.ToLower(to),
		Amount: json.Number(amount.String()),
	})
	if err != nil {
		return nil, err
	}
	converted, err := parseNumber(resp.Converted)
	if err != nil {
		return nil, fmt.Errorf("rates: bad converted amount: %w", err)
	}
	if !converted.IsPositive() {
		return nil, fmt.Errorf("rates: upstream returned non-positive conversion %s for %s %s", converted, amount, from)
	}
	fromUSD, err := parseNumber(resp.FromUSDQuote)
	if err != nil {
		return nil, fmt.Errorf("rates: bad from_usd_quote: %w", err)
	}
	toUSD, err := parseNumber(resp.ToUSDQuote)
	if err != nil {
		return nil, fmt.Errorf("rates: bad to_usd_quote: %w", err)
	}
	q := &Quote{
		From:         strings.ToUpper(from),
		To:           strings.ToUpper(to),
		Amount:       amount,
		Converted:    converted,
		FromUSDQuote: fromUSD,
		ToUSDQuote:   toUSD,
	}
	r.logger.Debug().
		Str("from", q.From).
		Str("to", q.To).
		Str("amount", amount.String()).
		Str("converted", converted.String()).
		Msg("conversion quoted")
	return q, nil
}

func parseNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
