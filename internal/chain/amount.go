package chain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human asset amount into integer base units for the
// given decimals. Fractional dust below one base unit is dropped, never
// rounded up, so the result can always be covered by the quoted amount.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("chain: negative amount %s", amount)
	}
	scaled := amount.Shift(decimals).Floor()
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("chain: scaling %s by %d produced non-integer %s", amount, decimals, scaled)
	}
	if scaled.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, fmt.Errorf("chain: amount %s overflows base units at %d decimals", amount, decimals)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits converts integer base units back into a human amount.
func FromBaseUnits(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-decimals)
}

// FromBaseUnitsString parses a raw base-unit string, as returned by node and
// indexer APIs, into a human amount.
func FromBaseUnitsString(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: bad raw amount %q: %w", raw, err)
	}
	return d.Shift(-decimals), nil
}
