package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"tooma/internal/flow"
	"tooma/internal/notify"
	"tooma/internal/rates"
)

// PayParams are the pay command inputs.
type PayParams struct {
	Amount        string
	FiatCurrency  string
	Network       string
	Identity      string
	MethodType    string
	AccountNumber string
	Token         string
}

// Pay quotes the conversion, runs the pay flow and prints the receipt.
func (a *App) Pay(ctx context.Context, params PayParams) error {
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

	quote, err := a.rates.Convert(ctx, params.FiatCurrency, tokenCur.Symbol, amount)
	if err != nil {
		return err
	}
	a.logger.Info().
		Str("fiat", amount.String()+" "+params.FiatCurrency).
		Str("crypto", quote.Converted.String()+" "+tokenCur.Symbol).
		Msg("conversion quoted")

	engine, err := a.engine(ctx)
	if err != nil {
		return err
	}
	methodType := params.MethodType
	if methodType == "" {
		methodType = "SEND"
	}
	wallet, err := a.requireWallet()
	if err != nil {
		return err
	}
	existing := ""
	if methodType == "SEND" {
		existing = a.prepareIdentity(ctx, wallet.Address.String(), params.Identity)
	}
	// Advisory only: show who the recipient resolves to, never gate on it.
	if a.pretium != nil {
		acc, err := a.pretium.ValidateAccount(ctx, rates.ValidationRequest{
			Type:          methodType,
			Shortcode:     params.Identity,
			MobileNetwork: params.Network,
			CurrencyCode:  params.FiatCurrency,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("recipient validation failed")
		} else if acc.Name != "" {
			fmt.Printf("recipient: %s\n", acc.Name)
		}
	}
	result, err := engine.Pay(ctx, flow.PayRequest{
		FiatCurrency:     params.FiatCurrency,
		FiatAmount:       amount,
		Network:          params.Network,
		Identity:         params.Identity,
		MethodType:       methodType,
		AccountNumber:    params.AccountNumber,
		ExistingMethodID: existing,
		Token:            *tokenCur,
		Quote:            quote,
	})
	if err != nil {
		if result != nil {
			a.notifyOutcome(ctx, "payment", result.Session.Code(), "failed", "", result.TxnHash, err.Error())
		}
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "outcome:\t%s\n", result.Outcome)
	fmt.Fprintf(w, "session:\t%s\n", result.Session.Code())
	fmt.Fprintf(w, "sent:\t%s %s\n", quote.Converted, tokenCur.Symbol)
	fmt.Fprintf(w, "received:\t%s %s\n", amount, params.FiatCurrency)
	fmt.Fprintf(w, "txn:\t%s\n", result.TxnHash)
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
	a.notifyOutcome(ctx, "payment", result.Session.Code(), status, receipt, result.TxnHash, "")
	return nil
}

func (a *App) notifyOutcome(ctx context.Context, flowType, code, status, receipt, txnHash, message string) {
	if a.notifier == nil {
		return
	}
	err := a.notifier.Notify(ctx, notify.Notification{
		FlowType: flowType,
		Code:     code,
		Status:   status,
		Receipt:  receipt,
		TxnHash:  txnHash,
		Message:  message,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("code", code).Msg("notification failed")
	}
}
