package settle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tooma/internal/backend"
)

func fastPoller(fetch StatusFunc, attempts int) *Poller {
	return NewPoller(fetch, PollerOptions{MaxAttempts: attempts, Interval: time.Millisecond}, noopLogger())
}

func TestPollerResolvesOnLastAttempt(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		calls++
		if calls < 30 {
			return &backend.SettlementStatus{Status: "PENDING"}, nil
		}
		return &backend.SettlementStatus{
			Status: "COMPLETED",
			Data:   &backend.SettlementData{Receipt: "R123"},
		}, nil
	}

	res, err := fastPoller(fetch, 30).Await(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 30 {
		t.Fatalf("expected 30 attempts, got %d", calls)
	}
	if res.Status != StatusCompleted || res.Receipt != "R123" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPollerExhaustionIsUnresolved(t *testing.T) {
	fetch := func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		return &backend.SettlementStatus{Status: "pending"}, nil
	}
	_, err := fastPoller(fetch, 5).Await(context.Background(), "code-1")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("预算耗尽应返回 ErrUnresolved, got %v", err)
	}
}

func TestPollerFailedIsResultNotError(t *testing.T) {
	fetch := func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		return &backend.SettlementStatus{Status: "FAILED", Message: "insufficient float"}, nil
	}
	res, err := fastPoller(fetch, 5).Await(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("明确失败不是 watch 错误: %v", err)
	}
	if res.Status != StatusFailed || res.Message != "insufficient float" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPollerTransientErrorsConsumeBudget(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		calls++
		return nil, fmt.Errorf("boom %d", calls)
	}
	_, err := fastPoller(fetch, 4).Await(context.Background(), "code-1")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("瞬时错误应计入预算, 实际请求 %d 次", calls)
	}
}

func TestPollerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		cancel()
		return &backend.SettlementStatus{Status: "pending"}, nil
	}
	_, err := NewPoller(fetch, PollerOptions{MaxAttempts: 10, Interval: time.Second}, noopLogger()).Await(ctx, "code-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollerRequiresCode(t *testing.T) {
	p := fastPoller(func(ctx context.Context, code string) (*backend.SettlementStatus, error) {
		return nil, nil
	}, 1)
	if _, err := p.Await(context.Background(), ""); err == nil {
		t.Fatal("空 code 应返回错误")
	}
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}
