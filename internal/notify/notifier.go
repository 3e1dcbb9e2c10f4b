package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification is one payment outcome worth telling an operator about.
type Notification struct {
	FlowType string
	Code     string
	Status   string
	Receipt  string
	TxnHash  string
	Message  string
}

// Render produces the message body, Markdown flavored for Telegram.
func (n Notification) Render() string {
	var b strings.Builder
	switch n.Status {
	case "completed":
		fmt.Fprintf(&b, "✅ *%s settled*\n", n.FlowType)
	case "failed":
		fmt.Fprintf(&b, "🚨 *%s failed*\n", n.FlowType)
	default:
		fmt.Fprintf(&b, "⏳ *%s %s*\n", n.FlowType, n.Status)
	}
	fmt.Fprintf(&b, "code: `%s`\n", n.Code)
	if n.Receipt != "" {
		fmt.Fprintf(&b, "receipt: `%s`\n", n.Receipt)
	}
	if n.TxnHash != "" {
		fmt.Fprintf(&b, "txn: `%s`\n", n.TxnHash)
	}
	if n.Message != "" {
		fmt.Fprintf(&b, "%s\n", n.Message)
	}
	return b.String()
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// TelegramOptions configures the Telegram notifier.
type TelegramOptions struct {
	BotToken string
	ChatID   string
	APIBase  string
	Timeout  time.Duration
}

// TelegramNotifier posts outcomes to a Telegram chat via the bot API.
type TelegramNotifier struct {
	opts   TelegramOptions
	logger zerolog.Logger
	http   *http.Client
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier builds a Telegram notifier.
func NewTelegramNotifier(opts TelegramOptions, logger zerolog.Logger) (*TelegramNotifier, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("notify: telegram bot token is required")
	}
	if opts.ChatID == "" {
		return nil, fmt.Errorf("notify: telegram chat id is required")
	}
	if opts.APIBase == "" {
		opts.APIBase = "https://api.telegram.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		opts:   opts,
		logger: logger.With().Str("component", "notify").Logger(),
		http:   &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Notify sends one message. Delivery failures are returned, not retried;
// notifications are best effort.
func (t *TelegramNotifier) Notify(ctx context.Context, n Notification) error {
	payload := map[string]string{
		"chat_id":    t.opts.ChatID,
		"text":       n.Render(),
		"parse_mode": "Markdown",
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.opts.APIBase, t.opts.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("notify: telegram returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}
	t.logger.Debug().Str("code", n.Code).Str("status", n.Status).Msg("notification sent")
	return nil
}
