package balance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
	"tooma/internal/chain"
)

// Reader resolves raw base-unit holdings for a set of asset addresses.
type Reader interface {
	FungibleBalances(ctx context.Context, owner string, assets []string) ([]chain.RawBalance, error)
}

// CryptoBalance is one catalog asset joined with the owner's holding.
type CryptoBalance struct {
	Currency  backend.Currency
	Raw       uint64
	Formatted decimal.Decimal
}

// Gate joins the backend's crypto catalog against on-chain holdings and
// answers sufficiency checks against quoted amounts.
type Gate struct {
	api    backend.API
	reader Reader
	logger zerolog.Logger
}

// NewGate builds a balance gate.
func NewGate(api backend.API, reader Reader, logger zerolog.Logger) *Gate {
	return &Gate{
		api:    api,
		reader: reader,
		logger: logger.With().Str("component", "balance").Logger(),
	}
}

// Balances returns the owner's holdings for every crypto entry of the
// catalog. Assets the owner has no position in report zero rather than being
// dropped.
func (g *Gate) Balances(ctx context.Context, owner string) ([]CryptoBalance, error) {
	currencies, err := g.api.Currencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance: load currency catalog: %w", err)
	}
	var crypto []backend.Currency
	var assets []string
	for _, cur := range currencies {
		if !cur.IsCrypto() {
			continue
		}
		crypto = append(crypto, cur)
		assets = append(assets, cur.Address)
	}
	raw, err := g.reader.FungibleBalances(ctx, owner, assets)
	if err != nil {
		return nil, fmt.Errorf("balance: read holdings: %w", err)
	}
	out := make([]CryptoBalance, 0, len(crypto))
	for _, cur := range crypto {
		amount := matchHolding(cur, raw)
		out = append(out, CryptoBalance{
			Currency:  cur,
			Raw:       amount,
			Formatted: chain.FromBaseUnits(amount, cur.DecimalsOrDefault()),
		})
	}
	return out, nil
}

// matchHolding finds the raw holding for a catalog entry. The native coin's
// catalog address is a placeholder, so it matches by coin type instead.
func matchHolding(cur backend.Currency, holdings []chain.RawBalance) uint64 {
	for _, h := range holdings {
		if h.AssetType == cur.Address {
			return h.Amount
		}
		if chain.IsNativeCoinType(cur.Address) && chain.IsNativeCoinType(h.AssetType) {
			return h.Amount
		}
	}
	return 0
}

// HasSufficient reports whether the owner holds at least the required amount
// of the catalog currency. The comparison is exact; holding the boundary
// amount passes.
func (g *Gate) HasSufficient(ctx context.Context, owner, currencyID string, required decimal.Decimal) (bool, *CryptoBalance, error) {
	balances, err := g.Balances(ctx, owner)
	if err != nil {
		return false, nil, err
	}
	for i := range balances {
		b := &balances[i]
		if b.Currency.ID != currencyID && b.Currency.Symbol != currencyID {
			continue
		}
		ok := b.Formatted.GreaterThanOrEqual(required)
		g.logger.Debug().
			Str("currency", b.Currency.Symbol).
			Str("held", b.Formatted.String()).
			Str("required", required.String()).
			Bool("sufficient", ok).
			Msg("balance check")
		return ok, b, nil
	}
	return false, nil, fmt.Errorf("balance: currency %q not in catalog", currencyID)
}
