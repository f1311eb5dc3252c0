package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRulesMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")

	cfg, hash, err := LoadRulesWithHash(path)
	if err != nil {
		t.Fatalf("LoadRulesWithHash: %v", err)
	}
	if len(cfg.Pool) == 0 || len(cfg.Default) == 0 {
		t.Error("defaults must carry pool and default rules")
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("hash = %q, want sha256 prefix", hash)
	}
}

func TestLoadRulesParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
pool:
  - "Anything over $5000 requires my approval"
default:
  - "Purchases over $100 require a reason"
recipients:
  alice:
    - "Max $500/month for groceries"
alerts:
  - url: https://example.com/hook
    format: slack
    events: [deny]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, hash, err := LoadRulesWithHash(path)
	if err != nil {
		t.Fatalf("LoadRulesWithHash: %v", err)
	}
	if len(cfg.Pool) != 1 || len(cfg.Default) != 1 {
		t.Errorf("pool=%d default=%d, want 1 each", len(cfg.Pool), len(cfg.Default))
	}
	if len(cfg.Recipients["alice"]) != 1 {
		t.Errorf("alice rules = %v, want 1", cfg.Recipients["alice"])
	}
	if len(cfg.Alerts) != 1 || cfg.Alerts[0].Format != "slack" {
		t.Errorf("alerts = %+v, want one slack hook", cfg.Alerts)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("hash = %q, want sha256 prefix", hash)
	}
}

func TestLoadRulesInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("pool: [unclosed"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestCompileAndForRecipient(t *testing.T) {
	cfg := &RulesConfig{
		Default: []string{"Purchases over $200 require a reason"},
		Recipients: map[string][]string{
			"alice": {"Max $500/month for groceries"},
		},
	}
	rs := cfg.Compile()

	alice := rs.ForRecipient("alice")
	if len(alice) != 2 {
		t.Fatalf("alice rules = %d, want defaults plus extras", len(alice))
	}
	if alice[0].Kind != KindRequireReason || alice[1].Kind != KindAmountCap {
		t.Errorf("rule kinds = %v, %v", alice[0].Kind, alice[1].Kind)
	}

	bob := rs.ForRecipient("bob")
	if len(bob) != 1 || bob[0].Kind != KindRequireReason {
		t.Errorf("bob must get only the defaults, got %v", bob)
	}
}

func TestDefaultRulesYAMLIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(DefaultRulesYAML()), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadRules(path)
	if err != nil {
		t.Fatalf("starter rules must parse: %v", err)
	}
	rs := cfg.Compile()
	if len(rs.Pool) == 0 || len(rs.Default) == 0 {
		t.Error("starter rules must compile to pool and default rules")
	}
}
