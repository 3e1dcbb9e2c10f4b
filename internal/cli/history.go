package cli

import (
	"github.com/spf13/cobra"
)

var historyType string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List settlement history for the wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().History(cmd.Context(), historyType)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyType, "type", "payment", "Transaction type: payment, onramp or offramp")
}
