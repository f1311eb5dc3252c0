// Package cli implements the agentvault command tree. Every administrative
// operation lives here, on the principal's own shell; the agent only ever
// reaches the vault through the MCP surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var vaultDir string

var rootCmd = &cobra.Command{
	Use:   "agentvault",
	Short: "Spending guardrails for AI agents managing real funds",
	Long: `agentvault holds a pool of funds behind hard guardrails: per-recipient
daily and monthly limits, a vault-wide daily cap, a per-transfer cap, plain
English policy rules, a deadman switch, and a kill switch. An AI agent can
request disbursements; only the vault decides whether money moves.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultDir, "dir", "", "Vault directory (default ~/.agentvault)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
