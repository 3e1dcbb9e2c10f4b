package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"tooma/internal/chain"
)

// DepositParams are the deposit command inputs.
type DepositParams struct {
	Amount string
	Token  string
}

// Deposit moves funds into the payment contract without a session. The
// amount is in asset units, not fiat.
func (a *App) Deposit(ctx context.Context, params DepositParams) error {
	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		return fmt.Errorf("app: bad amount %q: %w", params.Amount, err)
	}
	token := params.Token
	if token == "" {
		token = a.cfg.Payment.DefaultToken
	}
	currencies, err := a.api.Currencies(ctx)
	if err != nil {
		return err
	}
	tokenCur, err := findCurrency(currencies, token)
	if err != nil {
		return err
	}

	composer, err := a.composer()
	if err != nil {
		return err
	}
	ok, held, err := a.gate.HasSufficient(ctx, composer.SignerAddress(), tokenCur.ID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("app: insufficient %s balance: have %s, need %s",
			tokenCur.Symbol, held.Formatted, amount)
	}

	baseUnits, err := chain.ToBaseUnits(amount, tokenCur.DecimalsOrDefault())
	if err != nil {
		return err
	}
	hash, err := composer.Submit(ctx, chain.PaymentIntent{
		MetadataAddress: tokenCur.Address,
		AmountBaseUnits: baseUnits,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "deposited:\t%s %s\n", amount, tokenCur.Symbol)
	fmt.Fprintf(w, "txn:\t%s\n", hash)
	w.Flush()
	return nil
}
