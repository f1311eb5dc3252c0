// Package request sequences a human-originated fund request through identity
// resolution, guardrail pre-checks, policy evaluation, and submission to the
// vault. The orchestrator is the only caller that signs intents; the vault
// itself never sees the signing key.
package request

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/toanps/agentvault/internal/alert"
	"github.com/toanps/agentvault/internal/audit"
	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/model"
	"github.com/toanps/agentvault/internal/policy"
	"github.com/toanps/agentvault/internal/vault"
)

// DefaultIntentExpiry is how long a signed intent stays valid. Long enough
// to survive queueing, short enough that a leaked intent ages out.
const DefaultIntentExpiry = time.Hour

// maxNonceRestarts bounds how often a request restarts after losing a nonce
// race to a concurrent winner. Each restart re-reads the nonce and re-signs.
const maxNonceRestarts = 2

// Response is the user-facing result of one fund request.
type Response struct {
	RequestID string         `json:"request_id"`
	Outcome   model.Outcome  `json:"outcome"`
	Message   string         `json:"message"`
	Rule      string         `json:"matched_rule,omitempty"`
	Receipt   *model.Receipt `json:"receipt,omitempty"`
}

// Orchestrator drives fund requests end to end. Rules can be swapped at
// runtime via ReloadRules; everything else is fixed at construction.
type Orchestrator struct {
	vault  *vault.Vault
	signer authz.Signer

	mu        sync.RWMutex
	rules     *policy.RuleSet
	rulesHash string

	dispatcher *alert.Dispatcher
	auditLog   *audit.Log
	persist    func() error

	expiry time.Duration
	nowFn  func() time.Time
}

// Config wires an Orchestrator. Dispatcher and AuditLog may be nil; Expiry
// and Now default sensibly.
type Config struct {
	Vault      *vault.Vault
	Signer     authz.Signer
	Rules      *policy.RuleSet
	RulesHash  string
	Dispatcher *alert.Dispatcher
	AuditLog   *audit.Log

	// Persist, when set, runs after every executed disbursement so the
	// vault's counters and nonce survive a crash.
	Persist func() error

	Expiry time.Duration
	Now    func() time.Time
}

// New builds an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Vault == nil {
		return nil, fmt.Errorf("request: vault is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("request: signer is required")
	}
	if cfg.Rules == nil {
		cfg.Rules = policy.DefaultRules().Compile()
	}
	if cfg.Expiry == 0 {
		cfg.Expiry = DefaultIntentExpiry
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		vault:      cfg.Vault,
		signer:     cfg.Signer,
		rules:      cfg.Rules,
		rulesHash:  cfg.RulesHash,
		dispatcher: cfg.Dispatcher,
		auditLog:   cfg.AuditLog,
		persist:    cfg.Persist,
		expiry:     cfg.Expiry,
		nowFn:      cfg.Now,
	}, nil
}

// ReloadRules swaps in a new rule set atomically. In-flight requests finish
// against the rules they started with.
func (o *Orchestrator) ReloadRules(rules *policy.RuleSet, hash string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules = rules
	o.rulesHash = hash
}

// RulesHash returns the identity of the active rule set.
func (o *Orchestrator) RulesHash() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rulesHash
}

func (o *Orchestrator) snapshotRules() (*policy.RuleSet, string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rules, o.rulesHash
}

// Handle runs one fund request to a terminal state. It never returns an
// error for a guardrail rejection; those become deny responses. An error
// means an internal failure the caller should surface generically.
func (o *Orchestrator) Handle(req model.Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	resp := o.process(req)
	o.record(req, resp)
	return resp
}

// Check runs the read-only portion of a request without signing or
// submitting anything. It mirrors every guardrail the vault enforces on
// submission, so a Check approval only diverges from Handle when state moves
// in between. Used for dry runs.
func (o *Orchestrator) Check(req model.Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if resp, ok := o.precheck(req); !ok {
		return resp
	}
	return Response{
		RequestID: req.ID,
		Outcome:   model.Approve,
		Message:   "request would be approved",
	}
}

// precheck runs the read-only checks and reports (denial, false) on any
// verdict that stops the request, or (zero, true) if the request may proceed
// to signing. It covers everything SubmitIntent enforces except what only
// exists at submit time (nonce, expiry, signature), phrased the same way, so
// a dry run and a real submission agree.
func (o *Orchestrator) precheck(req model.Request) (Response, bool) {
	deny := func(msg, rule string) (Response, bool) {
		return Response{RequestID: req.ID, Outcome: model.Deny, Message: msg, Rule: rule}, false
	}

	// Step 1: identity.
	rec, err := o.vault.Recipient(req.Identifier)
	if err != nil {
		return deny(fmt.Sprintf("%q is not a whitelisted recipient", req.Identifier), "")
	}

	// Steps 2-3: kill switch, liveness, recipient state.
	if o.vault.Paused() {
		return deny("the vault is paused", "")
	}
	if o.vault.GetDeadmanStatus().Expired {
		return deny("the vault locked itself because the owner has not checked in; a heartbeat is needed", "")
	}
	if !rec.Active {
		return deny(fmt.Sprintf("recipient %q is deactivated", req.Identifier), "")
	}

	if req.Amount <= 0 {
		return deny("amount must be positive", "")
	}

	limits := o.vault.GetTransferLimits()
	if req.Amount > limits.PerTransactionCap {
		return deny(fmt.Sprintf("single transfers are capped at %s", formatAmount(limits.PerTransactionCap)), "")
	}
	if !limits.CooldownReadyAt.IsZero() {
		return deny(fmt.Sprintf("too soon after the last transfer, try again %s", humanize.Time(limits.CooldownReadyAt)), "")
	}

	// Step 4: reset-aware allowances.
	allowance, err := o.vault.RemainingAllowance(req.Identifier)
	if err != nil {
		return deny("could not read allowances", "")
	}
	if req.Amount > allowance.Daily {
		return deny(fmt.Sprintf("only %s left of today's allowance (resets %s)",
			formatAmount(allowance.Daily), humanize.Time(allowance.DailyResetAt)), "")
	}
	if req.Amount > allowance.Monthly {
		return deny(fmt.Sprintf("only %s left of this month's allowance (resets %s)",
			formatAmount(allowance.Monthly), humanize.Time(allowance.MonthlyResetAt)), "")
	}

	// Step 5: pool balance.
	balance, err := o.vault.Balance()
	if err != nil {
		return Response{RequestID: req.ID, Outcome: model.Errored, Message: "internal error, nothing was transferred"}, false
	}
	if req.Amount > balance {
		return deny(fmt.Sprintf("the pool only holds %s", formatAmount(balance)), "")
	}

	rules, _ := o.snapshotRules()

	// Step 6: pool-level rules.
	pool := o.vault.GetPoolStatus()
	if d := policy.EvaluatePool(rules.Pool, req.Amount, pool.Spent); d.Outcome != model.Approve {
		return Response{RequestID: req.ID, Outcome: d.Outcome, Message: d.Reason, Rule: d.MatchedRule}, false
	}

	// Step 7: per-recipient rules.
	spending, err := o.vault.Spending(req.Identifier)
	if err != nil {
		return Response{RequestID: req.ID, Outcome: model.Errored, Message: "internal error, nothing was transferred"}, false
	}
	if d := policy.Evaluate(rules.ForRecipient(req.Identifier), req.Amount, req.Reason, spending); d.Outcome != model.Approve {
		return Response{RequestID: req.ID, Outcome: d.Outcome, Message: d.Reason, Rule: d.MatchedRule}, false
	}

	return Response{}, true
}

func (o *Orchestrator) process(req model.Request) Response {
	for attempt := 0; ; attempt++ {
		if resp, ok := o.precheck(req); !ok {
			return resp
		}

		// Step 8: sign and submit.
		now := o.nowFn().UTC()
		intent := model.Intent{
			Recipient: req.Identifier,
			Amount:    req.Amount,
			Memo:      req.Reason,
			Nonce:     o.vault.Nonce(),
			ExpiresAt: now.Add(o.expiry),
		}
		sig, err := o.signer.Sign(authz.Digest(intent.Recipient, intent.Amount, intent.Memo, intent.Nonce, intent.ExpiresAt))
		if err != nil {
			return Response{RequestID: req.ID, Outcome: model.Errored, Message: "internal error, nothing was transferred"}
		}
		intent.Authorization = sig

		receipt, err := o.vault.SubmitIntent(intent)
		if err == nil {
			if o.persist != nil {
				if perr := o.persist(); perr != nil {
					fmt.Fprintf(os.Stderr, "warning: state save failed: %v\n", perr)
				}
			}
			return Response{
				RequestID: req.ID,
				Outcome:   model.Approve,
				Message:   fmt.Sprintf("sent %s to %q", formatAmount(req.Amount), req.Identifier),
				Receipt:   &receipt,
			}
		}

		var ge *vault.GuardrailError
		if !errors.As(err, &ge) {
			return Response{RequestID: req.ID, Outcome: model.Errored, Message: "internal error, nothing was transferred"}
		}

		// A concurrent winner moved the nonce between our read and submit.
		// Restart from the pre-checks with a fresh nonce, bounded.
		if ge.Code == vault.CodeStaleNonce && attempt < maxNonceRestarts {
			continue
		}

		return Response{RequestID: req.ID, Outcome: model.Deny, Message: denialMessage(ge)}
	}
}

// denialMessage turns a structured guardrail rejection into one actionable
// sentence, using the error's own limit and reset data.
func denialMessage(ge *vault.GuardrailError) string {
	switch ge.Code {
	case vault.CodePaused:
		return "the vault is paused"
	case vault.CodeDeadmanTriggered:
		return "the vault locked itself because the owner has not checked in; a heartbeat is needed"
	case vault.CodeCooldownActive:
		return fmt.Sprintf("too soon after the last transfer, try again %s", humanize.Time(ge.RetryAt))
	case vault.CodeExceedsPerTransactionCap:
		return fmt.Sprintf("single transfers are capped at %s", formatAmount(ge.Limit))
	case vault.CodeExceedsDailyLimit:
		return fmt.Sprintf("only %s left of today's allowance (resets %s)", formatAmount(ge.Remaining), humanize.Time(ge.ResetAt))
	case vault.CodeExceedsMonthlyLimit:
		return fmt.Sprintf("only %s left of this month's allowance (resets %s)", formatAmount(ge.Remaining), humanize.Time(ge.ResetAt))
	case vault.CodeExceedsPoolDailyCap:
		return fmt.Sprintf("the vault's daily total is nearly spent, only %s left (resets %s)", formatAmount(ge.Remaining), humanize.Time(ge.ResetAt))
	case vault.CodeInsufficientBalance:
		return fmt.Sprintf("the pool only holds %s", formatAmount(ge.Limit))
	case vault.CodeStaleNonce:
		return "the request lost a race with another transfer, please try again"
	case vault.CodeDeadlineExpired:
		return "the authorization expired before it could be executed, please try again"
	default:
		return ge.Reason
	}
}

// record writes the audit entry and fires webhooks. Neither can affect the
// response: a completed disbursement is never rolled back over logging.
func (o *Orchestrator) record(req model.Request, resp Response) {
	_, hash := o.snapshotRules()

	if o.auditLog != nil {
		entry := audit.Entry{
			RequestID:   resp.RequestID,
			Recipient:   req.Identifier,
			Amount:      req.Amount,
			Reason:      req.Reason,
			Outcome:     string(resp.Outcome),
			Detail:      resp.Message,
			MatchedRule: resp.Rule,
			RulesHash:   hash,
		}
		if resp.Receipt != nil {
			entry.Nonce = resp.Receipt.Nonce
		}
		if err := o.auditLog.Record(entry); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
		}
	}

	if o.dispatcher != nil {
		event := alert.Event{
			Timestamp: o.nowFn().UTC().Format(time.RFC3339),
			RequestID: resp.RequestID,
			Recipient: req.Identifier,
			Amount:    req.Amount,
			Outcome:   string(resp.Outcome),
			Reason:    resp.Message,
			RulesHash: hash,
		}
		if resp.Receipt != nil {
			event.Nonce = resp.Receipt.Nonce
		}
		o.dispatcher.Dispatch(event)
	}
}

// formatAmount renders minor units as dollars with thousand separators.
func formatAmount(cents int64) string {
	if cents%100 == 0 {
		return "$" + humanize.Comma(cents/100)
	}
	return fmt.Sprintf("$%s.%02d", humanize.Comma(cents/100), cents%100)
}
