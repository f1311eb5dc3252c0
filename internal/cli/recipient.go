package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	recipientLabel    string
	recipientCategory string
	recipientDaily    int64
	recipientMonthly  int64
)

func init() {
	recipientAddCmd.Flags().StringVar(&recipientLabel, "label", "", "Human-readable name")
	recipientAddCmd.Flags().StringVar(&recipientCategory, "category", "", "Free-text category (e.g. family, contractor)")
	recipientAddCmd.Flags().Int64Var(&recipientDaily, "daily", 0, "Daily limit in cents (required)")
	recipientAddCmd.Flags().Int64Var(&recipientMonthly, "monthly", 0, "Monthly limit in cents (required)")
	recipientAddCmd.MarkFlagRequired("daily")
	recipientAddCmd.MarkFlagRequired("monthly")

	recipientLimitsCmd.Flags().Int64Var(&recipientDaily, "daily", 0, "New daily limit in cents (required)")
	recipientLimitsCmd.Flags().Int64Var(&recipientMonthly, "monthly", 0, "New monthly limit in cents (required)")
	recipientLimitsCmd.MarkFlagRequired("daily")
	recipientLimitsCmd.MarkFlagRequired("monthly")

	recipientCmd.AddCommand(recipientAddCmd)
	recipientCmd.AddCommand(recipientListCmd)
	recipientCmd.AddCommand(recipientLimitsCmd)
	recipientCmd.AddCommand(recipientDeactivateCmd)
	recipientCmd.AddCommand(recipientReactivateCmd)
	rootCmd.AddCommand(recipientCmd)
}

var recipientCmd = &cobra.Command{
	Use:   "recipient",
	Short: "Manage the whitelist",
}

var recipientAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Whitelist a new recipient with daily and monthly limits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.AddRecipient(args[0], recipientLabel, recipientCategory, recipientDaily, recipientMonthly); err != nil {
				return err
			}
			fmt.Printf("Added %q (daily %s, monthly %s)\n", args[0], cents(recipientDaily), cents(recipientMonthly))
			return nil
		})
	},
}

var recipientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelist entries with remaining allowances",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		recipients := a.vault.Recipients()
		if len(recipients) == 0 {
			fmt.Println("No recipients. Add one with 'agentvault recipient add'.")
			return nil
		}
		for _, r := range recipients {
			state := "active"
			if !r.Active {
				state = "deactivated"
			}
			allowance, err := a.vault.RemainingAllowance(r.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %-12s daily %s of %s left, monthly %s of %s left (added %s)\n",
				r.ID, state,
				cents(allowance.Daily), cents(r.DailyLimit),
				cents(allowance.Monthly), cents(r.MonthlyLimit),
				humanize.Time(r.AddedAt))
		}
		return nil
	},
}

var recipientLimitsCmd = &cobra.Command{
	Use:   "limits <id>",
	Short: "Change a recipient's spend limits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.UpdateLimits(args[0], recipientDaily, recipientMonthly); err != nil {
				return err
			}
			fmt.Printf("Updated %q (daily %s, monthly %s)\n", args[0], cents(recipientDaily), cents(recipientMonthly))
			return nil
		})
	},
}

var recipientDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Turn a recipient off without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.DeactivateRecipient(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deactivated %q\n", args[0])
			return nil
		})
	},
}

var recipientReactivateCmd = &cobra.Command{
	Use:   "reactivate <id>",
	Short: "Turn a deactivated recipient back on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.ReactivateRecipient(args[0]); err != nil {
				return err
			}
			fmt.Printf("Reactivated %q\n", args[0])
			return nil
		})
	},
}
