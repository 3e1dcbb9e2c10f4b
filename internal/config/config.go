package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"tooma/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Pretium    PretiumConfig    `mapstructure:"pretium"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Sponsor    SponsorConfig    `mapstructure:"sponsor"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// BackendConfig covers the Tooma payment backend.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PretiumConfig covers the fixed exchange-rate / validation provider.
type PretiumConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	DefaultCurrency string        `mapstructure:"default_currency"`
}

// ChainConfig covers on-chain data access and the payment contract.
type ChainConfig struct {
	Network         string        `mapstructure:"network"`
	NodeURL         string        `mapstructure:"node_url"`
	IndexerURL      string        `mapstructure:"indexer_url"`
	ContractAddress string        `mapstructure:"contract_address"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// WalletConfig holds the payer signing key used by the CLI flows.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// SponsorConfig governs gas sponsorship. PrivateKey is only ever read by the
// server side (`run`); client flows know the sponsor solely by URL.
type SponsorConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	URL            string   `mapstructure:"url"`
	ListenAddr     string   `mapstructure:"listen_addr"`
	PrivateKey     string   `mapstructure:"private_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PaymentConfig tunes flow validation and terminal-state handling.
type PaymentConfig struct {
	MinFiatAmount float64       `mapstructure:"min_fiat_amount"`
	DefaultToken  string        `mapstructure:"default_token"`
	ResetDelay    time.Duration `mapstructure:"reset_delay"`
}

// SettlementConfig tunes the settlement watcher.
type SettlementConfig struct {
	Transport   string        `mapstructure:"transport"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
}

// DatabaseConfig encapsulates the optional attempt-ledger PostgreSQL pool.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ReconcileConfig governs out-of-band re-polling of unresolved settlements.
type ReconcileConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

// NotifyConfig routes settlement-outcome notifications.
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram notification parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOOMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tooma")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("backend.base_url", "https://preview-api.tooma.xyz")
	v.SetDefault("backend.request_timeout", "10s")
	v.SetDefault("backend.user_agent", "tooma/1.0")

	v.SetDefault("pretium.base_url", "https://api.xwift.africa")
	v.SetDefault("pretium.request_timeout", "10s")
	v.SetDefault("pretium.default_currency", "KES")

	v.SetDefault("chain.network", "testnet")
	v.SetDefault("chain.contract_address", "0xce349ffbde2e28c21a4a7de7c4e1b3d72f1fe079494c7f8f8832bd6c8502e559")
	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("sponsor.enabled", false)
	v.SetDefault("sponsor.listen_addr", ":8090")
	v.SetDefault("sponsor.allowed_origins", []string{"*"})

	v.SetDefault("payment.min_fiat_amount", 20.0)
	v.SetDefault("payment.default_token", "apt")
	v.SetDefault("payment.reset_delay", "3s")

	v.SetDefault("settlement.transport", "poll")
	v.SetDefault("settlement.max_attempts", 30)
	v.SetDefault("settlement.interval", "2s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.interval", "1m")
	v.SetDefault("reconcile.startup_delay", "5s")
	v.SetDefault("reconcile.advisory_lock_key", int64(0x746f6f6d61))
	v.SetDefault("reconcile.max_age", "24h")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required")
	}
	switch c.Settlement.Transport {
	case "poll", "stream":
	default:
		return fmt.Errorf("settlement.transport must be poll or stream, got %q", c.Settlement.Transport)
	}
	if c.Settlement.MaxAttempts <= 0 {
		return fmt.Errorf("settlement.max_attempts must be greater than zero")
	}
	if c.Settlement.Interval <= 0 {
		return fmt.Errorf("settlement.interval must be greater than zero")
	}
	if c.Payment.MinFiatAmount < 0 {
		return fmt.Errorf("payment.min_fiat_amount cannot be negative")
	}
	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return fmt.Errorf("reconcile.interval must be greater than zero")
	}
	if c.Sponsor.Enabled && c.Sponsor.ListenAddr == "" {
		return fmt.Errorf("sponsor.listen_addr is required when sponsor is enabled")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required")
		}
	}
	return nil
}
