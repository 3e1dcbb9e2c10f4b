package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: tooma\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "https://preview-api.tooma.xyz" {
		t.Fatalf("unexpected backend base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Payment.MinFiatAmount != 20.0 {
		t.Fatalf("期望最小金额 20, 实际 %v", cfg.Payment.MinFiatAmount)
	}
	if cfg.Settlement.Transport != "poll" || cfg.Settlement.MaxAttempts != 30 {
		t.Fatalf("unexpected settlement defaults %+v", cfg.Settlement)
	}
	if cfg.Settlement.Interval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %s", cfg.Settlement.Interval)
	}
	if cfg.Payment.ResetDelay != 3*time.Second {
		t.Fatalf("expected 3s reset delay, got %s", cfg.Payment.ResetDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
settlement:
  transport: stream
  max_attempts: 10
  interval: 500ms
chain:
  network: mainnet
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Settlement.Transport != "stream" || cfg.Settlement.MaxAttempts != 10 {
		t.Fatalf("unexpected settlement %+v", cfg.Settlement)
	}
	if cfg.Settlement.Interval != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", cfg.Settlement.Interval)
	}
	if cfg.Chain.Network != "mainnet" {
		t.Fatalf("expected mainnet, got %q", cfg.Chain.Network)
	}
}

func TestValidateRejectsBadTransport(t *testing.T) {
	if _, err := Load(writeConfig(t, "settlement:\n  transport: webhook\n")); err == nil {
		t.Fatal("非法 transport 应返回错误")
	}
}

func TestValidateRejectsNonPositiveAttempts(t *testing.T) {
	if _, err := Load(writeConfig(t, "settlement:\n  max_attempts: 0\n")); err == nil {
		t.Fatal("max_attempts=0 应返回错误")
	}
}

func TestValidateTelegramNeedsCredentials(t *testing.T) {
	if _, err := Load(writeConfig(t, "notify:\n  telegram:\n    enabled: true\n")); err == nil {
		t.Fatal("启用 telegram 时缺少凭据应返回错误")
	}
}
