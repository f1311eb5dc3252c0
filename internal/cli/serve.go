package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toanps/agentvault/internal/alert"
	"github.com/toanps/agentvault/internal/audit"
	"github.com/toanps/agentvault/internal/mcp"
	"github.com/toanps/agentvault/internal/policy"
	"github.com/toanps/agentvault/internal/request"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vault to an AI agent over MCP (stdio)",
	Long: `Starts an MCP server on stdio exposing vault_request, vault_check,
vault_status, and vault_history. Point your agent runtime at it:

  {"mcpServers": {"agentvault": {"command": "agentvault", "args": ["serve"]}}}

The rules file is watched and hot-reloaded on change. Vault state is saved
after every executed transfer when the server shuts down.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	signer, err := loadSigner(a.dir)
	if err != nil {
		return err
	}

	rules, rulesHash, err := policy.LoadRulesWithHash(a.rulesPath())
	if err != nil {
		return err
	}

	auditLog, err := audit.Open(a.auditPath())
	if err != nil {
		return err
	}
	defer auditLog.Close()

	orch, err := request.New(request.Config{
		Vault:      a.vault,
		Signer:     signer,
		Rules:      rules.Compile(),
		RulesHash:  rulesHash,
		Dispatcher: alert.NewDispatcher(rules.Alerts),
		AuditLog:   auditLog,
		Persist:    a.save,
	})
	if err != nil {
		return err
	}

	server, err := mcp.New(orch, a.vault, a.rulesPath())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "agentvault: serving MCP on stdio (rules %s)\n", rulesHash)
	runErr := server.Run(ctx)

	// Persist counters, nonce, and history accumulated while serving.
	if err := a.save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: state save failed: %v\n", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
