package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/toanps/agentvault/internal/authz"
)

func init() {
	rotateCmd.AddCommand(rotateProposeCmd)
	rotateCmd.AddCommand(rotateActivateCmd)
	rotateCmd.AddCommand(rotateCancelCmd)
	rotateCmd.AddCommand(rotateStatusCmd)
	rootCmd.AddCommand(rotateCmd)
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the agent's authorizing key behind a timelock",
	Long: `Key rotation is two-phase: propose generates a fresh keypair and stages
its public key; activate swaps it in once the timelock elapses. The old
key keeps working until activation, then stops verifying entirely.`,
}

var rotateProposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Generate a fresh keypair and stage its public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			signer, seed, err := authz.GenerateSigner()
			if err != nil {
				return err
			}
			if err := a.vault.ProposeKeyRotation(signer.PublicKey()); err != nil {
				return err
			}

			// The new seed sits next to the active one until activation.
			pendingPath := filepath.Join(a.dir, keyFile+".pending")
			if err := os.WriteFile(pendingPath, []byte(seed+"\n"), 0600); err != nil {
				return fmt.Errorf("write pending key: %w", err)
			}

			pending, _ := a.vault.GetPendingRotation()
			fmt.Printf("Rotation proposed. New key activates %s.\n", humanize.Time(pending.ActivatesAt))
			fmt.Printf("Pending seed written to %s\n", pendingPath)
			return nil
		})
	},
}

var rotateActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Swap in the pending key once the timelock elapses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.ActivateKeyRotation(); err != nil {
				return err
			}

			pendingPath := filepath.Join(a.dir, keyFile+".pending")
			activePath := filepath.Join(a.dir, keyFile)
			if err := os.Rename(pendingPath, activePath); err != nil {
				return fmt.Errorf("promote pending key: %w", err)
			}

			fmt.Println("Rotation activated. The old key no longer verifies.")
			return nil
		})
	},
}

var rotateCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Clear the pending rotation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(a *app) error {
			if err := a.vault.CancelKeyRotation(); err != nil {
				return err
			}
			os.Remove(filepath.Join(a.dir, keyFile+".pending"))
			fmt.Println("Pending rotation cancelled.")
			return nil
		})
	},
}

var rotateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pending rotation, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		pending, ok := a.vault.GetPendingRotation()
		if !ok {
			fmt.Println("No rotation pending.")
			return nil
		}
		fmt.Printf("Pending key: %s\nActivates:   %s (%s)\n",
			pending.PendingKey,
			pending.ActivatesAt.Format("2006-01-02 15:04 MST"),
			humanize.Time(pending.ActivatesAt))
		return nil
	},
}
