package request

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toanps/agentvault/internal/audit"
	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/model"
	"github.com/toanps/agentvault/internal/policy"
	"github.com/toanps/agentvault/internal/store"
	"github.com/toanps/agentvault/internal/vault"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

type env struct {
	orch  *Orchestrator
	vault *vault.Vault
	clk   *testClock
}

func newTestEnv(t *testing.T, rules *policy.RulesConfig) *env {
	t.Helper()

	clk := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	signer, _, err := authz.GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner: %v", err)
	}

	v, err := vault.New(store.NewMemStore(5_000_00), authz.Ed25519Verifier{}, vault.Config{
		Principal:         "owner",
		AuthorizingKey:    signer.PublicKey(),
		PoolDailyCap:      2_000_00,
		PerTransactionCap: 1_500_00,
		DeadmanWindow:     7 * 24 * time.Hour,
		Now:               clk.now,
	})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	if err := v.AddRecipient("alice", "Alice", "family", 800_00, 3_000_00); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}

	if rules == nil {
		rules = &policy.RulesConfig{}
	}
	orch, err := New(Config{
		Vault:     v,
		Signer:    signer,
		Rules:     rules.Compile(),
		RulesHash: "sha256:test",
		Now:       clk.now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &env{orch: orch, vault: v, clk: clk}
}

func TestHandleApprovesAndTransfers(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 100_00, Reason: "groceries"})
	if resp.Outcome != model.Approve {
		t.Fatalf("outcome = %s (%s), want approve", resp.Outcome, resp.Message)
	}
	if resp.Receipt == nil || resp.Receipt.Nonce != 0 {
		t.Errorf("receipt = %+v, want nonce 0", resp.Receipt)
	}
	if resp.RequestID == "" {
		t.Error("response must carry a request id")
	}

	balance, _ := e.vault.Balance()
	if balance != 4_900_00 {
		t.Errorf("balance = %d, want 490000", balance)
	}
}

func TestHandleDeniesUnknownRecipient(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.orch.Handle(model.Request{Identifier: "mallory", Amount: 100_00})
	if resp.Outcome != model.Deny {
		t.Fatalf("outcome = %s, want deny", resp.Outcome)
	}
	if !strings.Contains(resp.Message, "not a whitelisted recipient") {
		t.Errorf("message = %q", resp.Message)
	}

	if e.vault.Nonce() != 0 {
		t.Error("denied request must not advance the nonce")
	}
}

func TestHandleDeniesWhilePaused(t *testing.T) {
	e := newTestEnv(t, nil)
	e.vault.Pause()

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 100_00})
	if resp.Outcome != model.Deny || !strings.Contains(resp.Message, "paused") {
		t.Errorf("got %s (%q), want pause denial", resp.Outcome, resp.Message)
	}
}

func TestHandleDeniesOverAllowance(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 900_00, Reason: "rent"})
	if resp.Outcome != model.Deny {
		t.Fatalf("outcome = %s, want deny", resp.Outcome)
	}
	if !strings.Contains(resp.Message, "today's allowance") {
		t.Errorf("message = %q, want allowance detail", resp.Message)
	}
}

func TestHandlePolicyDeny(t *testing.T) {
	e := newTestEnv(t, &policy.RulesConfig{
		Default: []string{"Never allow gaming purchases"},
	})

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 50_00, Reason: "new steam game"})
	if resp.Outcome != model.Deny {
		t.Fatalf("outcome = %s, want deny", resp.Outcome)
	}
	if resp.Rule == "" {
		t.Error("policy denial must name the matched rule")
	}
	if e.vault.Nonce() != 0 {
		t.Error("policy denial must not reach the vault")
	}
}

func TestHandlePolicyEscalation(t *testing.T) {
	e := newTestEnv(t, &policy.RulesConfig{
		Pool: []string{"Anything over $500 requires my approval"},
	})

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 600_00, Reason: "rent"})
	if resp.Outcome != model.Escalate {
		t.Fatalf("outcome = %s (%s), want escalate", resp.Outcome, resp.Message)
	}
	if e.vault.Nonce() != 0 {
		t.Error("escalated request must not execute")
	}
}

func TestHandleMapsGuardrailErrors(t *testing.T) {
	e := newTestEnv(t, nil)

	// Per-transaction cap is below the recipient's own limits once raised.
	if err := e.vault.UpdateLimits("alice", 2_000_00, 5_000_00); err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}
	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 1_600_00, Reason: "tuition"})
	if resp.Outcome != model.Deny {
		t.Fatalf("outcome = %s, want deny", resp.Outcome)
	}
	if !strings.Contains(resp.Message, "capped at $1,500") {
		t.Errorf("message = %q, want cap detail", resp.Message)
	}
}

func TestCheckIsDryRun(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.orch.Check(model.Request{Identifier: "alice", Amount: 100_00, Reason: "groceries"})
	if resp.Outcome != model.Approve {
		t.Fatalf("outcome = %s, want approve", resp.Outcome)
	}

	if e.vault.Nonce() != 0 {
		t.Error("check must not execute anything")
	}
	balance, _ := e.vault.Balance()
	if balance != 5_000_00 {
		t.Errorf("balance = %d, check must not move funds", balance)
	}
}

// A dry run must reach the same verdict a real submission would, for every
// guardrail the vault enforces, not just the allowance checks.
func TestCheckAgreesWithHandle(t *testing.T) {
	agree := func(t *testing.T, e *env, req model.Request, wantDetail string) {
		t.Helper()
		check := e.orch.Check(req)
		handle := e.orch.Handle(req)
		if check.Outcome != model.Deny || handle.Outcome != model.Deny {
			t.Fatalf("check = %s (%q), handle = %s (%q), want both deny",
				check.Outcome, check.Message, handle.Outcome, handle.Message)
		}
		if check.Message != handle.Message {
			t.Errorf("check says %q but handle says %q", check.Message, handle.Message)
		}
		if !strings.Contains(check.Message, wantDetail) {
			t.Errorf("message = %q, want %q mentioned", check.Message, wantDetail)
		}
	}

	t.Run("per-transaction cap", func(t *testing.T) {
		e := newTestEnv(t, nil)
		if err := e.vault.UpdateLimits("alice", 2_000_00, 5_000_00); err != nil {
			t.Fatalf("UpdateLimits: %v", err)
		}
		agree(t, e, model.Request{Identifier: "alice", Amount: 1_600_00, Reason: "tuition"}, "capped at $1,500")
	})

	t.Run("cooldown", func(t *testing.T) {
		e := newTestEnv(t, nil)
		if err := e.vault.SetCooldown(10 * time.Minute); err != nil {
			t.Fatalf("SetCooldown: %v", err)
		}
		if resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 100_00, Reason: "groceries"}); resp.Outcome != model.Approve {
			t.Fatalf("seed transfer: %s (%q)", resp.Outcome, resp.Message)
		}
		e.clk.t = e.clk.t.Add(time.Minute)
		agree(t, e, model.Request{Identifier: "alice", Amount: 50_00, Reason: "coffee"}, "too soon")
	})

	t.Run("deadman switch", func(t *testing.T) {
		e := newTestEnv(t, nil)
		e.clk.t = e.clk.t.Add(8 * 24 * time.Hour)
		agree(t, e, model.Request{Identifier: "alice", Amount: 100_00, Reason: "groceries"}, "heartbeat")
	})
}

func TestReloadRulesTakesEffect(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.orch.Handle(model.Request{Identifier: "alice", Amount: 50_00, Reason: "steam game"})
	if resp.Outcome != model.Approve {
		t.Fatalf("before reload: outcome = %s, want approve", resp.Outcome)
	}

	cfg := &policy.RulesConfig{Default: []string{"Never allow gaming purchases"}}
	e.orch.ReloadRules(cfg.Compile(), "sha256:new")

	e.clk.t = e.clk.t.Add(time.Minute)
	resp = e.orch.Handle(model.Request{Identifier: "alice", Amount: 50_00, Reason: "steam game"})
	if resp.Outcome != model.Deny {
		t.Errorf("after reload: outcome = %s, want deny", resp.Outcome)
	}
	if e.orch.RulesHash() != "sha256:new" {
		t.Errorf("rules hash = %q, want sha256:new", e.orch.RulesHash())
	}
}

func TestHandleWritesAuditChain(t *testing.T) {
	e := newTestEnv(t, nil)

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := audit.Open(path)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer log.Close()
	e.orch.auditLog = log

	e.orch.Handle(model.Request{Identifier: "alice", Amount: 100_00, Reason: "groceries"})
	e.orch.Handle(model.Request{Identifier: "mallory", Amount: 100_00})

	result := audit.Verify(path)
	if !result.Valid {
		t.Fatalf("audit chain invalid: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Errorf("audit lines = %d, want 2", result.Lines)
	}
}

func TestHandleGeneratesDistinctRequestIDs(t *testing.T) {
	e := newTestEnv(t, nil)

	a := e.orch.Handle(model.Request{Identifier: "mallory", Amount: 1_00})
	b := e.orch.Handle(model.Request{Identifier: "mallory", Amount: 1_00})
	if a.RequestID == b.RequestID {
		t.Error("each request must get its own id")
	}
}
