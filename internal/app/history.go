package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"tooma/internal/backend"
)

// History prints the wallet's settlement history for a transaction type.
func (a *App) History(ctx context.Context, typ string) error {
	wallet, err := a.requireWallet()
	if err != nil {
		return err
	}
	address := wallet.Address.String()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch backend.TransactionType(typ) {
	case backend.TransactionOnramp:
		txns, err := a.api.OnrampTransactions(ctx, address)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "WHEN\tSTATUS\tAMOUNT\tTOKEN\tRECEIPT")
		for _, t := range txns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.RequestedAt.Format(time.RFC3339), t.Status, t.Amount, t.TargetToken, receiptOf(t.Data))
		}
	case backend.TransactionPayment, backend.TransactionOfframp:
		txns, err := a.api.PaymentTransactions(ctx, backend.TransactionType(typ), address)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "WHEN\tSTATUS\tSENT\tFIAT\tIDENTITY\tCODE")
		for _, t := range txns {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
				t.RequestedAt.Format(time.RFC3339), t.Status,
				t.TransferredAmount, t.TransferredToken, t.FinalFiatValue,
				t.PaymentIdentity, t.TransactionCode)
		}
	default:
		return fmt.Errorf("app: unknown transaction type %q", typ)
	}
	return nil
}

func receiptOf(d *backend.SettlementData) string {
	if d == nil {
		return ""
	}
	return d.Receipt
}
