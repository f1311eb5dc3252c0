package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/store"
	"github.com/toanps/agentvault/internal/vault"
)

var (
	initPrincipal   string
	initPoolCap     int64
	initTxCap       int64
	initCooldown    time.Duration
	initDeadman     time.Duration
	initRotationDly time.Duration
	initForce       bool
)

func init() {
	initCmd.Flags().StringVar(&initPrincipal, "principal", "", "Identifier the drain escape hatch pays out to (required)")
	initCmd.Flags().Int64Var(&initPoolCap, "pool-daily-cap", 2000_00, "Vault-wide daily ceiling in cents")
	initCmd.Flags().Int64Var(&initTxCap, "per-transaction-cap", 500_00, "Single-transfer ceiling in cents")
	initCmd.Flags().DurationVar(&initCooldown, "cooldown", time.Minute, "Minimum spacing between transfers")
	initCmd.Flags().DurationVar(&initDeadman, "deadman-window", 7*24*time.Hour, "How long the vault keeps disbursing without a heartbeat")
	initCmd.Flags().DurationVar(&initRotationDly, "rotation-delay", vault.DefaultRotationDelay, "Timelock between proposing and activating a new key")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing vault")
	initCmd.MarkFlagRequired("principal")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a vault and the agent's signing key",
	Long: `Creates the vault directory with a fresh state file, an empty ledger
database, a generated ed25519 signing key for the agent, and a starter
rules file. The vault starts empty; fund it with 'agentvault deposit'.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}

	statePath := filepath.Join(dir, stateFile)
	if _, err := os.Stat(statePath); err == nil && !initForce {
		return fmt.Errorf("vault already exists at %s (use --force to overwrite)", dir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	signer, seed, err := authz.GenerateSigner()
	if err != nil {
		return err
	}
	keyPath := filepath.Join(dir, keyFile)
	if err := os.WriteFile(keyPath, []byte(seed+"\n"), 0600); err != nil {
		return fmt.Errorf("write agent key: %w", err)
	}

	st, err := store.OpenSQLite(filepath.Join(dir, ledgerFile))
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := vault.New(st, authz.Ed25519Verifier{}, vault.Config{
		Principal:         initPrincipal,
		AuthorizingKey:    signer.PublicKey(),
		PoolDailyCap:      initPoolCap,
		PerTransactionCap: initTxCap,
		Cooldown:          initCooldown,
		DeadmanWindow:     initDeadman,
		RotationDelay:     initRotationDly,
	})
	if err != nil {
		return err
	}
	if err := v.Save(statePath); err != nil {
		return err
	}

	fmt.Printf("Vault created at %s\n", dir)
	fmt.Printf("  agent key:       %s\n", keyPath)
	fmt.Printf("  authorizing key: %s\n", signer.PublicKey())
	fmt.Println("\nNext steps:")
	fmt.Println("  agentvault deposit --amount <cents>")
	fmt.Println("  agentvault recipient add <id> --daily <cents> --monthly <cents>")
	fmt.Println("  agentvault init-rules")
	fmt.Println("  agentvault serve")
	return nil
}
