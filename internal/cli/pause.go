package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Flip the kill switch: stop all disbursements immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			a.vault.Pause()
			fmt.Println("Vault paused. Drain, heartbeat, and unpause remain available.")
			return nil
		})
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume disbursements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			a.vault.Unpause()
			fmt.Println("Vault unpaused.")
			return nil
		})
	},
}
