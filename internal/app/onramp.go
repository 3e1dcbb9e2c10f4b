package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"tooma/internal/flow"
)

// OnrampParams are the onramp command inputs.
type OnrampParams struct {
	Amount       string
	FiatCurrency string
	Network      string
	Identity     string
	TargetToken  string
}

// Onramp runs the fiat-to-crypto flow and prints its outcome.
func (a *App) Onramp(ctx context.Context, params OnrampParams) error {
	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		return fmt.Errorf("app: bad amount %q: %w", params.Amount, err)
	}
	target := params.TargetToken
	if target == "" {
		target = a.cfg.Payment.DefaultToken
	}
	currencies, err := a.api.Currencies(ctx)
	if err != nil {
		return err
	}
	tokenCur, err := findCurrency(currencies, target)
	if err != nil {
		return err
	}

	engine, err := a.engine(ctx)
	if err != nil {
		return err
	}
	wallet, err := a.requireWallet()
	if err != nil {
		return err
	}
	existing := a.prepareIdentity(ctx, wallet.Address.String(), params.Identity)
	result, err := engine.Onramp(ctx, flow.OnrampRequest{
		FiatCurrency:     params.FiatCurrency,
		FiatAmount:       amount,
		Network:          params.Network,
		Identity:         params.Identity,
		ExistingMethodID: existing,
		TargetToken:      tokenCur.ID,
	})
	if err != nil {
		if result != nil {
			a.notifyOutcome(ctx, "onramp", result.Code, "failed", "", "", err.Error())
		}
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "outcome:\t%s\n", result.Outcome)
	fmt.Fprintf(w, "code:\t%s\n", result.Code)
	fmt.Fprintf(w, "paid:\t%s %s\n", amount, params.FiatCurrency)
	fmt.Fprintf(w, "target:\t%s\n", tokenCur.Symbol)
	if result.Settlement != nil && result.Settlement.Receipt != "" {
		fmt.Fprintf(w, "receipt:\t%s\n", result.Settlement.Receipt)
	}
	if result.Outcome == flow.OutcomeUnverified {
		fmt.Fprintf(w, "note:\tsettlement not confirmed yet, check history later\n")
	}
	w.Flush()

	status := "completed"
	receipt := ""
	if result.Settlement != nil {
		receipt = result.Settlement.Receipt
	}
	if result.Outcome == flow.OutcomeUnverified {
		status = "pending"
	}
	a.notifyOutcome(ctx, "onramp", result.Code, status, receipt, "", "")
	return nil
}
