package app

import (
	"context"
	"fmt"
	"time"

	"tooma/internal/chain"
	"tooma/internal/scheduler"
	"tooma/internal/sponsor"
)

// Run hosts the long-lived services: the sponsor signing server and, when a
// database is configured, the reconciliation loop. Blocks until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if !a.cfg.Sponsor.Enabled && !a.cfg.Reconcile.Enabled {
		return fmt.Errorf("app: nothing to run, enable sponsor or reconcile")
	}

	errCh := make(chan error, 2)

	var srv *sponsor.Server
	if a.cfg.Sponsor.Enabled {
		if a.cfg.Sponsor.PrivateKey == "" {
			return fmt.Errorf("app: sponsor.private_key is required to run the sponsor server")
		}
		feePayer, err := chain.LoadAccount(a.cfg.Sponsor.PrivateKey)
		if err != nil {
			return err
		}
		build := func(ctx context.Context, sender string, intent chain.PaymentIntent) (*chain.SponsoredEnvelope, error) {
			return a.chain.BuildSponsoredPayment(ctx, sender, feePayer, intent)
		}
		srv = sponsor.NewServer(build, sponsor.Options{
			ListenAddr:     a.cfg.Sponsor.ListenAddr,
			AllowedOrigins: a.cfg.Sponsor.AllowedOrigins,
		}, a.logger)
		go func() { errCh <- srv.ListenAndServe() }()
	}

	if a.cfg.Reconcile.Enabled {
		if a.store == nil {
			return fmt.Errorf("app: reconcile needs database.dsn")
		}
		sched := scheduler.New(a.reconcileTick, scheduler.Options{
			Interval:     a.cfg.Reconcile.Interval,
			StartupDelay: a.cfg.Reconcile.StartupDelay,
		}, a.logger)
		go func() { errCh <- sched.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return err
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("sponsor shutdown")
		}
	}
	return nil
}
