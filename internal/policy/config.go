package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/toanps/agentvault/internal/alert"
)

// RulesConfig is the YAML shape of the human-authored rule file.
// Pool rules are vault-wide and run before any per-recipient rule. Default
// rules apply to every recipient; Recipients adds rules for specific
// whitelist entries on top of the defaults.
type RulesConfig struct {
	Pool       []string            `yaml:"pool"`
	Default    []string            `yaml:"default"`
	Recipients map[string][]string `yaml:"recipients"`
	Alerts     []alert.Config      `yaml:"alerts"`
}

// RuleSet is the compiled, immutable form of a RulesConfig.
type RuleSet struct {
	Pool       []Rule
	Default    []Rule
	Recipients map[string][]Rule
	Alerts     []alert.Config
}

// Compile parses every rule text once. Rules parse deterministically, so a
// RuleSet never needs re-parsing during evaluation.
func (c *RulesConfig) Compile() *RuleSet {
	rs := &RuleSet{
		Pool:       ParseAll(c.Pool),
		Default:    ParseAll(c.Default),
		Recipients: make(map[string][]Rule, len(c.Recipients)),
		Alerts:     c.Alerts,
	}
	for id, texts := range c.Recipients {
		rs.Recipients[id] = ParseAll(texts)
	}
	return rs
}

// ForRecipient returns the default rules followed by the recipient's own.
func (rs *RuleSet) ForRecipient(id string) []Rule {
	extra := rs.Recipients[id]
	if len(extra) == 0 {
		return rs.Default
	}
	rules := make([]Rule, 0, len(rs.Default)+len(extra))
	rules = append(rules, rs.Default...)
	rules = append(rules, extra...)
	return rules
}

// DefaultRules returns the built-in rule set used when no rules file exists.
func DefaultRules() *RulesConfig {
	return &RulesConfig{
		Pool: []string{
			"Anything over $1000 requires my approval",
		},
		Default: []string{
			"Purchases over $200 require a reason",
		},
		Recipients: map[string][]string{},
	}
}

// LoadRules loads the rule file from path. Empty path falls back to
// ~/.agentvault/rules.yaml. A missing file returns defaults; invalid YAML is
// an error.
func LoadRules(path string) (*RulesConfig, error) {
	cfg, _, err := LoadRulesWithHash(path)
	return cfg, err
}

// LoadRulesWithHash loads the rule file and returns the SHA-256 of the raw
// bytes on disk, prefixed "sha256:". When defaults are used the hash is the
// SHA-256 of empty input, so audit entries still pin a rule-set identity.
func LoadRulesWithHash(path string) (*RulesConfig, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultRules(), emptyHash(), nil
		}
		path = filepath.Join(home, ".agentvault", "rules.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read rules file: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified sections.
	cfg := DefaultRules()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse rules file: %w", err)
	}

	return cfg, hash, nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultRulesYAML returns a commented starter rule file for init-rules.
func DefaultRulesYAML() string {
	return `# agentvault rules
# Generated by: agentvault init-rules
#
# Rules are plain English. Each line is parsed into exactly one of:
#   amount cap        "Max $500/month for groceries"
#   deny category     "Deny gaming purchases over $50"
#   allow-only        "Only allow groceries and medical"
#   auto-approve      "Auto-approve utilities"
#   escalation        "Anything over $1000 requires my approval"
#   recurring         "Weekly allowance of $100 for entertainment"
#   require reason    "Purchases over $200 require a reason"
# Unparseable lines are kept but never produce a verdict.
#
# Precedence when several rules match:
#   deny > escalate > missing-reason > cap-exceeded > auto-approve > approve

# Vault-wide rules, checked before any per-recipient rule.
pool:
  - "Anything over $1000 requires my approval"

# Rules applied to every recipient.
default:
  - "Purchases over $200 require a reason"

# Extra rules per whitelisted recipient id.
recipients:
  # alice:
  #   - "Max $500/month for groceries"
  #   - "Deny gaming purchases over $50"

# Webhook notifications for decisions.
# events: list of outcomes to forward ("deny", "escalate", "approve")
alerts:
  # - url: https://hooks.slack.com/services/...
  #   format: slack
  #   events: [deny, escalate]
`
}
