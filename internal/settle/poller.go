package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PollerOptions tunes the watch budget.
type PollerOptions struct {
	MaxAttempts int
	Interval    time.Duration
}

func (o *PollerOptions) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 30
	}
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
}

// Poller watches a settlement by fetching its status on a fixed interval.
// Transient fetch errors consume attempts like pending responses do, so a
// flapping backend cannot extend the watch past its budget.
type Poller struct {
	fetch  StatusFunc
	opts   PollerOptions
	logger zerolog.Logger
}

var _ Watcher = (*Poller)(nil)

// NewPoller builds a polling watcher.
func NewPoller(fetch StatusFunc, opts PollerOptions, logger zerolog.Logger) *Poller {
	opts.applyDefaults()
	return &Poller{
		fetch:  fetch,
		opts:   opts,
		logger: logger.With().Str("component", "settle-poll").Logger(),
	}
}

// Await polls until the settlement turns terminal or the budget runs out.
func (p *Poller) Await(ctx context.Context, code string) (*Result, error) {
	if code == "" {
		return nil, fmt.Errorf("settle: code is required")
	}
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		st, err := p.fetch(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			p.logger.Warn().Err(err).Int("attempt", attempt).Str("code", code).Msg("status fetch failed")
		} else {
			res := resultFrom(code, st)
			if res.Terminal() {
				p.logger.Info().
					Str("code", code).
					Str("status", string(res.Status)).
					Int("attempt", attempt).
					Msg("settlement resolved")
				return &res, nil
			}
			p.logger.Debug().Int("attempt", attempt).Str("code", code).Str("raw", res.RawStatus).Msg("still pending")
		}
		if attempt == p.opts.MaxAttempts {
			break
		}
		timer := time.NewTimer(p.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %v)", ErrUnresolved, lastErr)
	}
	return nil, ErrUnresolved
}
