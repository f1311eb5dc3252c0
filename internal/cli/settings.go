package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	setCmd.AddCommand(setPoolCapCmd)
	setCmd.AddCommand(setTxCapCmd)
	setCmd.AddCommand(setCooldownCmd)
	setCmd.AddCommand(setDeadmanCmd)
	rootCmd.AddCommand(setCmd)
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change vault-wide guardrails",
}

var setPoolCapCmd = &cobra.Command{
	Use:   "pool-daily-cap <cents>",
	Short: "Change the vault-wide daily ceiling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		return withVault(func(a *app) error {
			if err := a.vault.SetPoolDailyCap(amount); err != nil {
				return err
			}
			fmt.Printf("Pool daily cap set to %s\n", cents(amount))
			return nil
		})
	},
}

var setTxCapCmd = &cobra.Command{
	Use:   "per-transaction-cap <cents>",
	Short: "Change the single-transfer ceiling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		return withVault(func(a *app) error {
			if err := a.vault.SetPerTransactionCap(amount); err != nil {
				return err
			}
			fmt.Printf("Per-transaction cap set to %s\n", cents(amount))
			return nil
		})
	},
}

var setCooldownCmd = &cobra.Command{
	Use:   "cooldown <duration>",
	Short: "Change the minimum spacing between transfers (e.g. 90s, 5m)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}
		return withVault(func(a *app) error {
			if err := a.vault.SetCooldown(d); err != nil {
				return err
			}
			fmt.Printf("Cooldown set to %s\n", d)
			return nil
		})
	},
}

var setDeadmanCmd = &cobra.Command{
	Use:   "deadman-window <duration>",
	Short: "Change the heartbeat window (e.g. 168h for a week)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}
		return withVault(func(a *app) error {
			if err := a.vault.SetDeadmanWindow(d); err != nil {
				return err
			}
			fmt.Printf("Deadman window set to %s\n", d)
			return nil
		})
	},
}
