package storage

import (
	"context"
	"fmt"
	"time"
)

const insertAttemptSQL = `
INSERT INTO payment_attempts (flow_type, code, txn_hash, status)
VALUES ($1, $2, $3, 'pending')
ON CONFLICT (code) DO NOTHING`

const resolveAttemptSQL = `
UPDATE payment_attempts
SET status = $2, receipt = $3, resolved_at = now()
WHERE code = $1 AND resolved_at IS NULL`

const listUnresolvedSQL = `
SELECT id, flow_type, code, txn_hash, status, receipt, created_at, resolved_at
FROM payment_attempts
WHERE resolved_at IS NULL AND created_at > $1
ORDER BY created_at ASC
LIMIT 100`

// RecordAttempt inserts a new attempt. Repeats on the same code are ignored.
func (s *Store) RecordAttempt(ctx context.Context, flowType, code, txnHash string) error {
	if _, err := s.pool.Exec(ctx, insertAttemptSQL, flowType, code, txnHash); err != nil {
		return fmt.Errorf("storage: record attempt %s: %w", code, err)
	}
	return nil
}

// ResolveAttempt marks an attempt terminal. Already resolved rows are left
// untouched.
func (s *Store) ResolveAttempt(ctx context.Context, code string, status string, receipt string) error {
	if _, err := s.pool.Exec(ctx, resolveAttemptSQL, code, status, receipt); err != nil {
		return fmt.Errorf("storage: resolve attempt %s: %w", code, err)
	}
	return nil
}

// ListUnresolved returns attempts still awaiting a terminal status, skipping
// those older than maxAge which the reconciler no longer chases.
func (s *Store) ListUnresolved(ctx context.Context, maxAge time.Duration) ([]PaymentAttempt, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.pool.Query(ctx, listUnresolvedSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("storage: list unresolved: %w", err)
	}
	defer rows.Close()
	var out []PaymentAttempt
	for rows.Next() {
		var a PaymentAttempt
		if err := rows.Scan(&a.ID, &a.FlowType, &a.Code, &a.TxnHash, &a.Status, &a.Receipt, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, fmt.Errorf("storage: scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate attempts: %w", err)
	}
	return out, nil
}
