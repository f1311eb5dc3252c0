package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(heartbeatCmd)
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Prove you are alive and re-arm the deadman switch",
	Long: `Resets the deadman clock. If the window elapses without a heartbeat the
vault stops disbursing until one arrives. Works while paused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			a.vault.Heartbeat()
			status := a.vault.GetDeadmanStatus()
			fmt.Printf("Heartbeat recorded. Vault stays live until %s (%s).\n",
				status.ExpiresAt.Format("2006-01-02 15:04 MST"), humanize.Time(status.ExpiresAt))
			return nil
		})
	},
}
