package balance

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
	"tooma/internal/chain"
)

type fakeAPI struct {
	backend.API
	currencies []backend.Currency
}

func (f *fakeAPI) Currencies(ctx context.Context) ([]backend.Currency, error) {
	return f.currencies, nil
}

type fakeReader struct {
	holdings []chain.RawBalance
}

func (f *fakeReader) FungibleBalances(ctx context.Context, owner string, assets []string) ([]chain.RawBalance, error) {
	return f.holdings, nil
}

func catalog() []backend.Currency {
	return []backend.Currency{
		{CurrencyType: "Fiat", ID: "kes", Symbol: "KES"},
		{CurrencyType: "Crypto", ID: "usdc", Symbol: "USDC", Address: "0xmeta", Decimals: 6},
		{CurrencyType: "Crypto", ID: "apt", Symbol: "APT", Address: "0xa", Decimals: 8},
		{CurrencyType: "Crypto", ID: "usdt", Symbol: "USDT", Address: "0xother", Decimals: 6},
	}
}

func testGate(holdings []chain.RawBalance) *Gate {
	return NewGate(&fakeAPI{currencies: catalog()}, &fakeReader{holdings: holdings}, zerolog.Nop())
}

func TestBalancesJoinsCatalog(t *testing.T) {
	g := testGate([]chain.RawBalance{
		{AssetType: "0x1::aptos_coin::AptosCoin", Amount: 150000000},
		{AssetType: "0xmeta", Amount: 773400},
	})
	balances, err := g.Balances(context.Background(), "0xowner")
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 3 {
		t.Fatalf("法币不应出现在余额里, got %d entries", len(balances))
	}
	byID := map[string]CryptoBalance{}
	for _, b := range balances {
		byID[b.Currency.ID] = b
	}
	if !byID["usdc"].Formatted.Equal(decimal.RequireFromString("0.7734")) {
		t.Fatalf("期望 USDC 0.7734, 实际 %s", byID["usdc"].Formatted)
	}
	if !byID["apt"].Formatted.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("占位地址应匹配原生币, got %s", byID["apt"].Formatted)
	}
	if !byID["usdt"].Formatted.IsZero() {
		t.Fatalf("未持有的资产应为零, got %s", byID["usdt"].Formatted)
	}
}

func TestHasSufficientBoundaryExact(t *testing.T) {
	g := testGate([]chain.RawBalance{
		{AssetType: "0x1::aptos_coin::AptosCoin", Amount: 0},
		{AssetType: "0xmeta", Amount: 50000}, // exactly 0.05 USDC
	})
	ok, _, err := g.HasSufficient(context.Background(), "0xowner", "usdc", decimal.RequireFromString("0.05"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("正好持有边界金额应通过")
	}

	ok, held, err := g.HasSufficient(context.Background(), "0xowner", "usdc", decimal.RequireFromString("0.06"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("0.05 held must not cover 0.06")
	}
	if !held.Formatted.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("expected held 0.05, got %s", held.Formatted)
	}
}

func TestHasSufficientUnknownCurrency(t *testing.T) {
	g := testGate(nil)
	if _, _, err := g.HasSufficient(context.Background(), "0xowner", "doge", decimal.NewFromInt(1)); err == nil {
		t.Fatal("未知货币应返回错误")
	}
}
