package cli

import (
	"github.com/spf13/cobra"

	"tooma/internal/app"
)

var onrampParams app.OnrampParams

var onrampCmd = &cobra.Command{
	Use:   "onramp",
	Short: "Buy crypto with mobile money",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Onramp(cmd.Context(), onrampParams)
	},
}

func init() {
	onrampCmd.Flags().StringVar(&onrampParams.Amount, "amount", "", "Fiat amount to spend")
	onrampCmd.Flags().StringVar(&onrampParams.FiatCurrency, "currency", "KES", "Fiat currency code")
	onrampCmd.Flags().StringVar(&onrampParams.Network, "network", "", "Mobile-money network, e.g. Safaricom")
	onrampCmd.Flags().StringVar(&onrampParams.Identity, "from", "", "Paying phone number")
	onrampCmd.Flags().StringVar(&onrampParams.TargetToken, "token", "", "Token to receive, defaults to payment.default_token")
	onrampCmd.MarkFlagRequired("amount")
	onrampCmd.MarkFlagRequired("from")
	onrampCmd.MarkFlagRequired("network")
}
