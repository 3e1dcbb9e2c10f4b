package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
	"tooma/internal/balance"
	"tooma/internal/chain"
	"tooma/internal/config"
	"tooma/internal/flow"
	"tooma/internal/logging"
	"tooma/internal/notify"
	"tooma/internal/rates"
	"tooma/internal/settle"
	"tooma/internal/storage"
)

// App wires the configured components and hosts the command entry points.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	api      *backend.Client
	chain    *chain.Client
	rates    *rates.BackendResolver
	pretium  *rates.PretiumClient
	gate     *balance.Gate
	wallet   *aptos.Account
	store    *storage.Store
	notifier notify.Notifier
}

// New builds the app from config. The wallet and database are optional;
// commands that need them fail with a clear error instead of at startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewLogger(cfg.Logging)

	api, err := backend.NewClient(backend.Options{
		BaseURL:   cfg.Backend.BaseURL,
		APIKey:    cfg.Backend.APIKey,
		Timeout:   cfg.Backend.RequestTimeout,
		UserAgent: cfg.Backend.UserAgent,
	}, logger)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(chain.Options{
		Network:         cfg.Chain.Network,
		NodeURL:         cfg.Chain.NodeURL,
		IndexerURL:      cfg.Chain.IndexerURL,
		ContractAddress: cfg.Chain.ContractAddress,
		RequestTimeout:  cfg.Chain.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		api:    api,
		chain:  chainClient,
		rates:  rates.NewBackendResolver(api, logger),
		gate:   balance.NewGate(api, chainClient, logger),
	}

	if cfg.Pretium.APIKey != "" {
		pretium, err := rates.NewPretiumClient(rates.PretiumOptions{
			BaseURL: cfg.Pretium.BaseURL,
			APIKey:  cfg.Pretium.APIKey,
			Timeout: cfg.Pretium.RequestTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.pretium = pretium
	}

	if cfg.Wallet.PrivateKey != "" {
		wallet, err := chain.LoadAccount(cfg.Wallet.PrivateKey)
		if err != nil {
			return nil, err
		}
		a.wallet = wallet
	}

	if cfg.Database.DSN != "" {
		store, err := storage.Open(ctx, storage.Options{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    int32(cfg.Database.MaxOpenConns),
			MinIdleConns:    int32(cfg.Database.MaxIdleConns),
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	if cfg.Notify.Telegram.Enabled {
		n, err := notify.NewTelegramNotifier(notify.TelegramOptions{
			BotToken: cfg.Notify.Telegram.BotToken,
			ChatID:   cfg.Notify.Telegram.ChatID,
			APIBase:  cfg.Notify.Telegram.APIBase,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.notifier = n
	}

	return a, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// Logger exposes the root logger for command wiring.
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

func (a *App) requireWallet() (*aptos.Account, error) {
	if a.wallet == nil {
		return nil, fmt.Errorf("app: no wallet configured, set wallet.private_key")
	}
	return a.wallet, nil
}

// payWatcher builds the settlement watcher for the pay flow per the
// configured transport.
func (a *App) payWatcher() settle.Watcher {
	if a.cfg.Settlement.Transport == "stream" {
		return settle.NewStreamer(func(code string) string {
			return a.cfg.Backend.BaseURL + "/status/" + code
		}, settle.StreamerOptions{
			Deadline: time.Duration(a.cfg.Settlement.MaxAttempts) * a.cfg.Settlement.Interval,
		}, a.logger)
	}
	return settle.NewPoller(a.api.PaymentStatus, settle.PollerOptions{
		MaxAttempts: a.cfg.Settlement.MaxAttempts,
		Interval:    a.cfg.Settlement.Interval,
	}, a.logger)
}

func (a *App) onrampWatcher() settle.Watcher {
	if a.cfg.Settlement.Transport == "stream" {
		return settle.NewStreamer(func(code string) string {
			return a.cfg.Backend.BaseURL + "/status/onramp/" + code
		}, settle.StreamerOptions{
			Deadline: time.Duration(a.cfg.Settlement.MaxAttempts) * a.cfg.Settlement.Interval,
		}, a.logger)
	}
	return settle.NewPoller(a.api.OnrampStatus, settle.PollerOptions{
		MaxAttempts: a.cfg.Settlement.MaxAttempts,
		Interval:    a.cfg.Settlement.Interval,
	}, a.logger)
}

// composer assembles the transaction composer for the configured wallet and
// gas mode.
func (a *App) composer() (*chain.Composer, error) {
	wallet, err := a.requireWallet()
	if err != nil {
		return nil, err
	}
	mode := chain.GasSelf
	var sponsor chain.Sponsor
	if a.cfg.Sponsor.Enabled && a.cfg.Sponsor.URL != "" {
		mode = chain.GasSponsored
		sponsor, err = chain.NewSponsorClient(a.cfg.Sponsor.URL, a.cfg.Chain.RequestTimeout, a.logger)
		if err != nil {
			return nil, err
		}
	}
	return chain.NewComposer(a.chain, wallet, mode, sponsor, a.logger)
}

// engine assembles a flow engine around the composer.
func (a *App) engine(ctx context.Context) (*flow.Engine, error) {
	composer, err := a.composer()
	if err != nil {
		return nil, err
	}
	var recorder flow.Recorder
	if a.store != nil {
		recorder = &attemptRecorder{store: a.store}
	}
	gate := func(ctx context.Context, owner, currencyID string, required decimal.Decimal) (bool, string, error) {
		ok, held, err := a.gate.HasSufficient(ctx, owner, currencyID, required)
		if err != nil {
			return false, "", err
		}
		return ok, held.Formatted.String(), nil
	}
	return flow.NewEngine(a.api, composer, gate, a.payWatcher(), a.onrampWatcher(), recorder, flow.Options{
		MinFiatAmount: decimal.NewFromFloat(a.cfg.Payment.MinFiatAmount),
		Payer:         composer.SignerAddress(),
		ResetDelay:    a.cfg.Payment.ResetDelay,
	}, a.logger), nil
}

// attemptRecorder adapts the storage layer to the flow recorder.
type attemptRecorder struct {
	store *storage.Store
}

var _ flow.Recorder = (*attemptRecorder)(nil)

func (r *attemptRecorder) RecordAttempt(ctx context.Context, flowType, code, txnHash string) error {
	return r.store.RecordAttempt(ctx, flowType, code, txnHash)
}

func (r *attemptRecorder) ResolveAttempt(ctx context.Context, code string, status settle.Status, receipt string) error {
	return r.store.ResolveAttempt(ctx, code, string(status), receipt)
}

// prepareIdentity makes sure the backend knows the payer and resolves a
// reusable payment method for the recipient identity. Both are best effort;
// the flow registers a fresh method when nothing is found.
func (a *App) prepareIdentity(ctx context.Context, payer, identity string) string {
	if _, err := a.api.CreateAccount(ctx, payer); err != nil {
		a.logger.Warn().Err(err).Str("payer", payer).Msg("account registration failed")
	}
	if identity == "" {
		return ""
	}
	methods, err := a.api.ListPaymentMethods(ctx, payer)
	if err != nil {
		a.logger.Warn().Err(err).Msg("list payment methods failed")
		return ""
	}
	for _, m := range methods {
		if m.Identity == identity {
			return m.MethodID()
		}
	}
	return ""
}

// findCurrency locates a catalog entry by symbol or id.
func findCurrency(currencies []backend.Currency, key string) (*backend.Currency, error) {
	for i := range currencies {
		c := &currencies[i]
		if c.ID == key || c.Symbol == key {
			return c, nil
		}
	}
	return nil, fmt.Errorf("app: currency %q not found in catalog", key)
}
