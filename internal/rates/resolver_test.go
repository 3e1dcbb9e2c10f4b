package rates

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
)

type fakeAPI struct {
	backend.API
	lastReq backend.ConversionRequest
	resp    *backend.ConversionResponse
	err     error
}

func (f *fakeAPI) Convert(ctx context.Context, req backend.ConversionRequest) (*backend.ConversionResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestConvertSuccess(t *testing.T) {
	api := &fakeAPI{resp: &backend.ConversionResponse{
		Converted:    "0.7734",
		FromUSDQuote: "129.25",
		ToUSDQuote:   "1.0001",
	}}
	r := NewBackendResolver(api, testLogger())

	quote, err := r.Convert(context.Background(), "KES", "USDC", decimal.NewFromInt(100))
	if err != nil {
		t.Fatal(err)
	}
	if api.lastReq.From != "kes" || api.lastReq.To != "usdc" {
		t.Fatalf("货币代码应小写传输, got %s/%s", api.lastReq.From, api.lastReq.To)
	}
	if !quote.Converted.Equal(decimal.RequireFromString("0.7734")) {
		t.Fatalf("期望 converted 0.7734, 实际 %s", quote.Converted)
	}
	if quote.From != "KES" || quote.To != "USDC" {
		t.Fatalf("unexpected quote legs %s/%s", quote.From, quote.To)
	}
}

func TestConvertRejectsNonPositiveAmount(t *testing.T) {
	r := NewBackendResolver(&fakeAPI{}, testLogger())
	if _, err := r.Convert(context.Background(), "KES", "USDC", decimal.Zero); err == nil {
		t.Fatal("零金额应返回错误")
	}
}

func TestConvertRejectsNonPositiveResult(t *testing.T) {
	api := &fakeAPI{resp: &backend.ConversionResponse{Converted: "0"}}
	r := NewBackendResolver(api, testLogger())
	if _, err := r.Convert(context.Background(), "KES", "USDC", decimal.NewFromInt(100)); err == nil {
		t.Fatal("converted=0 应视为上游故障")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
