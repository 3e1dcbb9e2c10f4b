package settle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"

	"tooma/internal/backend"
)

// StreamerOptions configures the SSE watcher.
type StreamerOptions struct {
	// Deadline bounds the whole subscription. Zero means 60 seconds, the
	// same budget the default poller carries.
	Deadline time.Duration
	// Headers are attached to the subscription request.
	Headers map[string]string
}

// Streamer watches a settlement over a server-sent-events endpoint instead
// of polling. Both transports honor the same contract: terminal result or
// ErrUnresolved at the deadline.
type Streamer struct {
	urlFor func(code string) string
	opts   StreamerOptions
	logger zerolog.Logger
}

var _ Watcher = (*Streamer)(nil)

// NewStreamer builds a streaming watcher. urlFor maps a settlement code to
// its SSE endpoint.
func NewStreamer(urlFor func(code string) string, opts StreamerOptions, logger zerolog.Logger) *Streamer {
	if opts.Deadline <= 0 {
		opts.Deadline = 60 * time.Second
	}
	return &Streamer{
		urlFor: urlFor,
		opts:   opts,
		logger: logger.With().Str("component", "settle-stream").Logger(),
	}
}

// Await subscribes to the settlement's event stream and returns on the first
// terminal event. Heartbeat events keep the connection alive and are
// ignored.
func (s *Streamer) Await(ctx context.Context, code string) (*Result, error) {
	if code == "" {
		return nil, fmt.Errorf("settle: code is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Deadline)
	defer cancel()

	client := sse.NewClient(s.urlFor(code))
	for k, v := range s.opts.Headers {
		client.Headers[k] = v
	}

	var mu sync.Mutex
	var terminal *Result
	err := client.SubscribeWithContext(ctx, "", func(msg *sse.Event) {
		switch string(msg.Event) {
		case "heartbeat":
			return
		}
		if len(msg.Data) == 0 {
			return
		}
		var st backend.SettlementStatus
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			s.logger.Warn().Err(err).Str("code", code).Msg("bad settlement event")
			return
		}
		res := resultFrom(code, &st)
		if !res.Terminal() {
			s.logger.Debug().Str("code", code).Str("raw", res.RawStatus).Msg("still pending")
			return
		}
		mu.Lock()
		if terminal == nil {
			terminal = &res
		}
		mu.Unlock()
		cancel()
	})

	mu.Lock()
	defer mu.Unlock()
	if terminal != nil {
		s.logger.Info().Str("code", code).Str("status", string(terminal.Status)).Msg("settlement resolved")
		return terminal, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrUnresolved
	}
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("settle: subscribe %s: %w", code, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrUnresolved
}
