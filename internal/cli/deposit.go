package cli

import (
	"github.com/spf13/cobra"

	"tooma/internal/app"
)

var depositParams app.DepositParams

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit funds into the payment contract",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Deposit(cmd.Context(), depositParams)
	},
}

func init() {
	depositCmd.Flags().StringVar(&depositParams.Amount, "amount", "", "Amount in asset units, e.g. 0.5")
	depositCmd.Flags().StringVar(&depositParams.Token, "token", "", "Token to deposit, defaults to payment.default_token")
	depositCmd.MarkFlagRequired("amount")
}
