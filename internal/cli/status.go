package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vault's guardrails, balance, and liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		balance, err := a.vault.Balance()
		if err != nil {
			return err
		}
		pool := a.vault.GetPoolStatus()
		deadman := a.vault.GetDeadmanStatus()

		state := "live"
		if a.vault.Paused() {
			state = "PAUSED"
		}
		fmt.Printf("Vault: %s\n", state)
		fmt.Printf("  balance:          %s\n", cents(balance))
		fmt.Printf("  pool daily cap:   %s (%s spent, resets %s)\n",
			cents(pool.Cap), cents(pool.Spent), humanize.Time(pool.ResetAt))
		fmt.Printf("  nonce:            %d\n", a.vault.Nonce())
		fmt.Printf("  authorizing key:  %s\n", a.vault.AuthorizingKey())

		if deadman.Expired {
			fmt.Printf("  deadman:          TRIGGERED (last heartbeat %s)\n", humanize.Time(deadman.LastHeartbeat))
		} else {
			fmt.Printf("  deadman:          ok, expires %s\n", humanize.Time(deadman.ExpiresAt))
		}

		if pending, ok := a.vault.GetPendingRotation(); ok {
			fmt.Printf("  pending rotation: activates %s\n", humanize.Time(pending.ActivatesAt))
		}

		fmt.Printf("  recipients:       %d\n", len(a.vault.Recipients()))
		return nil
	},
}
