package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var depositAmount int64

func init() {
	depositCmd.Flags().Int64Var(&depositAmount, "amount", 0, "Amount in cents (required)")
	depositCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(drainCmd)
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Credit the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.Deposit(depositAmount); err != nil {
				return err
			}
			balance, err := a.vault.Balance()
			if err != nil {
				return err
			}
			fmt.Printf("Deposited %s, pool now holds %s\n", cents(depositAmount), cents(balance))
			return nil
		})
	},
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Transfer the entire pool balance back to the principal",
	Long: `The escape hatch: moves everything back to the principal in one call.
Works while paused. Spend counters are untouched; drain is not a
disbursement.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			drained, err := a.vault.Drain()
			if err != nil {
				return err
			}
			fmt.Printf("Drained %s to the principal\n", cents(drained))
			return nil
		})
	},
}
