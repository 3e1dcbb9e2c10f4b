package storage

import "time"

// PaymentAttempt is one recorded flow attempt. Attempts start unresolved;
// the settlement watch or the reconciler marks them terminal.
type PaymentAttempt struct {
	ID         int64
	FlowType   string
	Code       string
	TxnHash    string
	Status     string
	Receipt    string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Resolved reports whether the attempt reached a terminal status.
func (a PaymentAttempt) Resolved() bool {
	return a.ResolvedAt != nil
}
