// Package mcp exposes the vault to AI agents over the Model Context
// Protocol. The agent only ever sees four tools: request funds, dry-run a
// request, read status, and read history. Every administrative operation
// stays on the CLI, behind the principal's own shell.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toanps/agentvault/internal/request"
	"github.com/toanps/agentvault/internal/vault"
)

// Server wraps the MCP SDK server around the request orchestrator.
type Server struct {
	mcpServer *mcpsdk.Server
	orch      *request.Orchestrator
	vault     *vault.Vault
	rulesPath string
}

// New creates an MCP server serving the given orchestrator and vault.
// rulesPath is only used for hot-reload; pass "" to disable watching.
func New(orch *request.Orchestrator, v *vault.Vault, rulesPath string) (*Server, error) {
	if orch == nil || v == nil {
		return nil, fmt.Errorf("mcp: orchestrator and vault are required")
	}

	s := &Server{
		orch:      orch,
		vault:     v,
		rulesPath: rulesPath,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "agentvault",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled. If a rules path was given, a watcher hot-reloads rule changes
// for the lifetime of the run.
func (s *Server) Run(ctx context.Context) error {
	if s.rulesPath != "" {
		reloader, err := NewReloader(s.orch, s.rulesPath)
		if err != nil {
			return err
		}
		go reloader.Run(ctx)
	}
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the agent-facing tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vault_request",
		Description: "Request a fund transfer to a whitelisted recipient. Denied requests return the reason; approved requests execute immediately and return a receipt.",
	}, s.handleRequest)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vault_check",
		Description: "Check whether a fund transfer would be approved, without executing it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vault_status",
		Description: "Read the vault's balance, pool cap, pause state, deadman status, and per-recipient remaining allowances.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vault_history",
		Description: "List the most recent executed transfers, oldest first.",
	}, s.handleHistory)
}
