package cli

import (
	"github.com/spf13/cobra"

	"tooma/internal/app"
)

var payParams app.PayParams

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Send a mobile-money payment funded from the wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Pay(cmd.Context(), payParams)
	},
}

func init() {
	payCmd.Flags().StringVar(&payParams.Amount, "amount", "", "Fiat amount the recipient receives")
	payCmd.Flags().StringVar(&payParams.FiatCurrency, "currency", "KES", "Receiving fiat currency code")
	payCmd.Flags().StringVar(&payParams.Network, "network", "", "Mobile-money network, e.g. Safaricom")
	payCmd.Flags().StringVar(&payParams.Identity, "to", "", "Recipient phone, paybill or till number")
	payCmd.Flags().StringVar(&payParams.MethodType, "method", "SEND", "Payment method type: SEND, PAYBILL or BUY_GOODS")
	payCmd.Flags().StringVar(&payParams.AccountNumber, "account", "", "Account number for paybill payments")
	payCmd.Flags().StringVar(&payParams.Token, "token", "", "Token to pay with, defaults to payment.default_token")
	payCmd.MarkFlagRequired("amount")
	payCmd.MarkFlagRequired("to")
	payCmd.MarkFlagRequired("network")
}
