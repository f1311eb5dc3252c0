package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toanps/agentvault/internal/policy"
)

var initRulesForce bool

func init() {
	initRulesCmd.Flags().BoolVar(&initRulesForce, "force", false, "Overwrite an existing rules file")
	rootCmd.AddCommand(initRulesCmd)
}

var initRulesCmd = &cobra.Command{
	Use:   "init-rules",
	Short: "Write a commented starter rules file",
	Long: `Writes rules.yaml into the vault directory with commented examples of
every rule kind. Edit it in plain English; a running server picks up
changes without a restart.`,
	RunE: runInitRules,
}

func runInitRules(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	path := filepath.Join(dir, rulesFile)
	if _, err := os.Stat(path); err == nil && !initRulesForce {
		return fmt.Errorf("rules file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(policy.DefaultRulesYAML()), 0600); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
