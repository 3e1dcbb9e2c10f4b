package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Balances prints the wallet's holdings across the catalog's crypto assets.
func (a *App) Balances(ctx context.Context) error {
	wallet, err := a.requireWallet()
	if err != nil {
		return err
	}
	balances, err := a.gate.Balances(ctx, wallet.Address.String())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tSYMBOL\tBALANCE")
	for _, b := range balances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Currency.Name, b.Currency.Symbol, b.Formatted)
	}
	return w.Flush()
}
