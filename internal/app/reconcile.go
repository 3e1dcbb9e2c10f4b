package app

import (
	"context"
	"fmt"

	"tooma/internal/backend"
	"tooma/internal/settle"
)

// reconcileTick re-checks unresolved attempts against the backend. Flows
// that exhausted their watch budget land here; a single status fetch per
// attempt either resolves it or leaves it for the next pass.
func (a *App) reconcileTick(ctx context.Context) error {
	key := a.cfg.Reconcile.AdvisoryLockKey
	acquired, err := a.store.TryAdvisoryLock(ctx, key)
	if err != nil {
		return err
	}
	if !acquired {
		a.logger.Debug().Msg("reconcile lock held elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := a.store.AdvisoryUnlock(context.WithoutCancel(ctx), key); err != nil {
			a.logger.Warn().Err(err).Msg("release reconcile lock")
		}
	}()

	attempts, err := a.store.ListUnresolved(ctx, a.cfg.Reconcile.MaxAge)
	if err != nil {
		return err
	}
	for _, attempt := range attempts {
		var st *backend.SettlementStatus
		switch attempt.FlowType {
		case "onramp":
			st, err = a.api.OnrampStatus(ctx, attempt.Code)
		default:
			st, err = a.api.PaymentStatus(ctx, attempt.Code)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn().Err(err).Str("code", attempt.Code).Msg("reconcile fetch failed")
			continue
		}
		status := settle.Normalize(st.Status)
		if status == settle.StatusPending {
			continue
		}
		if err := a.store.ResolveAttempt(ctx, attempt.Code, string(status), st.Receipt()); err != nil {
			return err
		}
		a.logger.Info().
			Str("code", attempt.Code).
			Str("status", string(status)).
			Msg("attempt reconciled")
		a.notifyOutcome(ctx, attempt.FlowType, attempt.Code, string(status), st.Receipt(), attempt.TxnHash,
			fmt.Sprintf("resolved by reconciler: %s", st.Message))
	}
	return nil
}
