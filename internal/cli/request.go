package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toanps/agentvault/internal/alert"
	"github.com/toanps/agentvault/internal/audit"
	"github.com/toanps/agentvault/internal/model"
	"github.com/toanps/agentvault/internal/policy"
	"github.com/toanps/agentvault/internal/request"
)

var (
	requestAmount int64
	requestReason string
	requestCheck  bool
)

func init() {
	requestCmd.Flags().Int64Var(&requestAmount, "amount", 0, "Amount in cents (required)")
	requestCmd.Flags().StringVar(&requestReason, "reason", "", "What the funds are for")
	requestCmd.Flags().BoolVar(&requestCheck, "check", false, "Dry-run: evaluate without executing")
	requestCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(requestCmd)
}

var requestCmd = &cobra.Command{
	Use:   "request <recipient>",
	Short: "Run a fund request through the full pipeline",
	Long: `Sends a request through the same path the agent uses: identity, guardrail
pre-checks, policy rules, signing, and submission. Useful for testing a
rule set before handing the vault to an agent.`,
	Args: cobra.ExactArgs(1),
	RunE: runRequest,
}

func runRequest(cmd *cobra.Command, args []string) error {
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

	req := model.Request{Identifier: args[0], Amount: requestAmount, Reason: requestReason}

	var resp request.Response
	if requestCheck {
		resp = orch.Check(req)
	} else {
		resp = orch.Handle(req)
	}

	fmt.Printf("%s: %s\n", resp.Outcome, resp.Message)
	if resp.Rule != "" {
		fmt.Printf("  rule: %q\n", resp.Rule)
	}
	if resp.Receipt != nil {
		fmt.Printf("  receipt: nonce %d at %s\n", resp.Receipt.Nonce, resp.Receipt.Timestamp.Format("15:04:05"))
	}
	return nil
}
