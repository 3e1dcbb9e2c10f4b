package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc runs one scheduled pass. Errors are logged, not fatal; the loop
// keeps its cadence regardless.
type TickFunc func(ctx context.Context) error

// Options configures the interval loop.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler runs a TickFunc on a fixed interval until the context ends.
type Scheduler struct {
	tick   TickFunc
	opts   Options
	logger zerolog.Logger
}

// New builds a scheduler.
func New(tick TickFunc, opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Scheduler{
		tick:   tick,
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is done. The first tick fires after StartupDelay,
// then every Interval.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	s.runOnce(ctx)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.tick(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("tick failed")
		return
	}
	s.logger.Debug().Dur("took", time.Since(start)).Msg("tick done")
}
