package chain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnitsFloorsDust(t *testing.T) {
	// 0.1234567891 at 8 decimals keeps 12345678, never 12345679.
	got, err := ToBaseUnits(decimal.RequireFromString("0.1234567891"), 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 12345678 {
		t.Fatalf("期望 12345678, 实际 %d", got)
	}
}

func TestToBaseUnitsExact(t *testing.T) {
	got, err := ToBaseUnits(decimal.RequireFromString("1.5"), 6)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1500000 {
		t.Fatalf("expected 1500000, got %d", got)
	}
}

func TestToBaseUnitsRejectsNegative(t *testing.T) {
	if _, err := ToBaseUnits(decimal.NewFromInt(-1), 8); err == nil {
		t.Fatal("负数金额应返回错误")
	}
}

func TestToBaseUnitsOverflow(t *testing.T) {
	huge := decimal.New(2, 19) // 2e19 > MaxUint64
	if _, err := ToBaseUnits(huge, 0); err == nil {
		t.Fatal("溢出时应返回错误")
	}
}

func TestFromBaseUnitsRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("42.123456")
	raw, err := ToBaseUnits(amount, 6)
	if err != nil {
		t.Fatal(err)
	}
	back := FromBaseUnits(raw, 6)
	if !back.Equal(amount) {
		t.Fatalf("round trip mismatch: %s -> %d -> %s", amount, raw, back)
	}
}

func TestFromBaseUnitsString(t *testing.T) {
	got, err := FromBaseUnitsString("150000000", 8)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5, got %s", got)
	}
	if _, err := FromBaseUnitsString("abc", 8); err == nil {
		t.Fatal("非法数字应返回错误")
	}
}

func TestIsNativeCoinType(t *testing.T) {
	if !IsNativeCoinType("0xa") {
		t.Fatal("placeholder address should match")
	}
	if !IsNativeCoinType("0x1::aptos_coin::AptosCoin") {
		t.Fatal("coin type should match")
	}
	if IsNativeCoinType("0xdeadbeef") {
		t.Fatal("arbitrary address should not match")
	}
}
