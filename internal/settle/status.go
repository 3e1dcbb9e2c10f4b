package settle

import (
	"context"
	"errors"
	"strings"

	"tooma/internal/backend"
)

// Status is a normalized settlement state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrUnresolved marks a settlement watch that exhausted its budget without
// reaching a terminal state. The payment may still settle out of band; it is
// not a failure.
var ErrUnresolved = errors.New("settle: settlement not confirmed in time")

// Normalize maps the backend's loose status strings onto the three states.
// Unknown strings are pending.
func Normalize(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "success":
		return StatusCompleted
	case "failed", "error":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Result is a terminal (or last observed) settlement outcome.
type Result struct {
	Code      string
	Status    Status
	RawStatus string
	Message   string
	Receipt   string
}

// Terminal reports whether the result reached a final state.
func (r Result) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

func resultFrom(code string, st *backend.SettlementStatus) Result {
	return Result{
		Code:      code,
		Status:    Normalize(st.Status),
		RawStatus: st.Status,
		Message:   st.Message,
		Receipt:   st.Receipt(),
	}
}

// StatusFunc fetches the current settlement document for a code.
type StatusFunc func(ctx context.Context, code string) (*backend.SettlementStatus, error)

// Watcher waits for a settlement to reach a terminal state. An explicit
// Failed status is a valid result, not an error; ErrUnresolved means the
// watch budget ran out while the settlement was still pending.
type Watcher interface {
	Await(ctx context.Context, code string) (*Result, error)
}
