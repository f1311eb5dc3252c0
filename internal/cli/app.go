package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/store"
	"github.com/toanps/agentvault/internal/vault"
)

// File names inside the vault directory.
const (
	stateFile  = "state.json"
	ledgerFile = "ledger.db"
	rulesFile  = "rules.yaml"
	auditFile  = "audit.jsonl"
	keyFile    = "agent.key"
)

// resolveDir returns the vault directory, honoring --dir.
func resolveDir() (string, error) {
	if vaultDir != "" {
		return vaultDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".agentvault"), nil
}

// app bundles the open vault and its backing store for one CLI invocation.
type app struct {
	dir   string
	store *store.SQLiteStore
	vault *vault.Vault
}

// loadApp opens the ledger store and restores the vault state. Commands that
// mutate must call save before close.
func loadApp() (*app, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	statePath := filepath.Join(dir, stateFile)
	if _, err := os.Stat(statePath); err != nil {
		return nil, fmt.Errorf("no vault at %s (run 'agentvault init' first)", dir)
	}

	st, err := store.OpenSQLite(filepath.Join(dir, ledgerFile))
	if err != nil {
		return nil, err
	}

	v, err := vault.Load(statePath, st, authz.Ed25519Verifier{}, nil)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{dir: dir, store: st, vault: v}, nil
}

func (a *app) save() error {
	return a.vault.Save(filepath.Join(a.dir, stateFile))
}

func (a *app) close() {
	a.store.Close()
}

func (a *app) rulesPath() string { return filepath.Join(a.dir, rulesFile) }
func (a *app) auditPath() string { return filepath.Join(a.dir, auditFile) }

// withVault loads the vault, applies fn, and saves the state on success.
func withVault(fn func(*app) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := fn(a); err != nil {
		return err
	}
	return a.save()
}

// cents renders a minor-unit amount as dollars.
func cents(v int64) string {
	if v%100 == 0 {
		return "$" + humanize.Comma(v/100)
	}
	return fmt.Sprintf("$%s.%02d", humanize.Comma(v/100), v%100)
}

// loadSigner reads the agent's signing key from the vault directory.
func loadSigner(dir string) (*authz.Ed25519Signer, error) {
	data, err := os.ReadFile(filepath.Join(dir, keyFile))
	if err != nil {
		return nil, fmt.Errorf("read agent key: %w", err)
	}
	return authz.NewSigner(strings.TrimSpace(string(data)))
}
