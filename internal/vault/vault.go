// Package vault implements the guardrail ledger: the single authority that
// accepts or rejects authorized disbursement intents and the only component
// allowed to mutate spend state.
//
// All mutation is strictly serialized behind one mutex. The nonce check and
// every counter update happen as one atomic unit; read views take the same
// lock briefly and return snapshot-consistent copies. There is no optimistic
// retry anywhere: an intent's signature binds its nonce at creation time, so
// a lost race must be re-signed by the caller, not replayed.
package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/model"
	"github.com/toanps/agentvault/internal/window"
)

// DefaultRotationDelay is the timelock between proposing and activating a
// new authorizing key.
const DefaultRotationDelay = 48 * time.Hour

// DefaultHistorySize bounds the in-memory transfer history.
const DefaultHistorySize = 256

// LedgerStore is the external collaborator that owns the true pool balance.
// Transfer must be atomic: either the debit and the transfer record both
// happen or neither does.
type LedgerStore interface {
	Balance() (int64, error)
	Deposit(amount int64) error
	Transfer(to string, amount int64) error
}

// Config captures the principal's guardrails at vault creation.
// Amounts are minor units; DeadmanWindow and Cooldown are durations rather
// than raw day/second counts so callers cannot confuse units.
type Config struct {
	Principal         string
	AuthorizingKey    string
	PoolDailyCap      int64
	PerTransactionCap int64
	Cooldown          time.Duration
	DeadmanWindow     time.Duration
	RotationDelay     time.Duration
	HistorySize       int

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// Vault is the owned aggregate holding all guardrail state. Create one with
// New (or state.Load) and share the pointer; never copy.
type Vault struct {
	mu sync.Mutex

	principal         string
	authorizingKey    string
	poolDailyCap      int64
	perTransactionCap int64
	cooldown          time.Duration
	deadmanWindow     time.Duration
	rotationDelay     time.Duration

	recipients map[string]*Recipient
	order      []string // insertion order for stable listing

	poolDailySpent   int64
	poolLastReset    time.Time
	lastDisbursement time.Time
	nonce            uint64
	lastHeartbeat    time.Time

	pendingKey            string
	pendingKeyActivatesAt time.Time

	paused  bool
	history *historyRing

	store    LedgerStore
	verifier authz.Verifier
	nowFn    func() time.Time
}

// New creates a vault with the given guardrails. The deadman clock starts
// armed: creation counts as the first heartbeat.
func New(store LedgerStore, verifier authz.Verifier, cfg Config) (*Vault, error) {
	if store == nil {
		return nil, fmt.Errorf("vault: ledger store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("vault: verifier is required")
	}
	if cfg.Principal == "" {
		return nil, fmt.Errorf("vault: principal is required")
	}
	if cfg.AuthorizingKey == "" {
		return nil, fmt.Errorf("vault: authorizing key is required")
	}
	if cfg.PoolDailyCap <= 0 || cfg.PerTransactionCap <= 0 {
		return nil, fmt.Errorf("vault: caps must be positive")
	}
	if cfg.Cooldown < 0 || cfg.DeadmanWindow <= 0 {
		return nil, fmt.Errorf("vault: cooldown must be non-negative and deadman window positive")
	}
	if cfg.RotationDelay == 0 {
		cfg.RotationDelay = DefaultRotationDelay
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().UTC()

	return &Vault{
		principal:         cfg.Principal,
		authorizingKey:    cfg.AuthorizingKey,
		poolDailyCap:      cfg.PoolDailyCap,
		perTransactionCap: cfg.PerTransactionCap,
		cooldown:          cfg.Cooldown,
		deadmanWindow:     cfg.DeadmanWindow,
		rotationDelay:     cfg.RotationDelay,
		recipients:        make(map[string]*Recipient),
		poolLastReset:     now,
		lastHeartbeat:     now,
		history:           newHistoryRing(cfg.HistorySize),
		store:             store,
		verifier:          verifier,
		nowFn:             nowFn,
	}, nil
}

// SubmitIntent is the single mutation entry point for disbursements.
//
// Checks run in a fixed order and the first failure wins. A rejection has no
// side effect of any kind: the same intent (with a fresh expiry) must be
// re-submittable. On success all four spend counters move, the nonce
// advances by exactly one, the transfer is executed through the ledger
// store, and a receipt is returned.
func (v *Vault) SubmitIntent(intent model.Intent) (model.Receipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn().UTC()

	if v.paused {
		return model.Receipt{}, reject(CodePaused, "vault is paused")
	}
	if now.After(intent.ExpiresAt) {
		return model.Receipt{}, reject(CodeDeadlineExpired, "intent expired at %s", intent.ExpiresAt.Format(time.RFC3339))
	}
	if intent.Nonce != v.nonce {
		return model.Receipt{}, reject(CodeStaleNonce, "intent nonce %d does not match current nonce %d", intent.Nonce, v.nonce)
	}
	if v.deadmanExpired(now) {
		return model.Receipt{}, &GuardrailError{
			Code:    CodeDeadmanTriggered,
			Reason:  fmt.Sprintf("no heartbeat since %s, window %s", v.lastHeartbeat.Format(time.RFC3339), v.deadmanWindow),
			ResetAt: v.lastHeartbeat.Add(v.deadmanWindow),
		}
	}

	digest := authz.Digest(intent.Recipient, intent.Amount, intent.Memo, intent.Nonce, intent.ExpiresAt)
	if !v.verifier.Verify(digest, intent.Authorization, v.authorizingKey) {
		return model.Receipt{}, reject(CodeInvalidAuthorization, "authorization does not verify against the vault key")
	}

	if intent.Amount <= 0 {
		return model.Receipt{}, reject(CodeInvalidAmount, "amount must be positive, got %d", intent.Amount)
	}
	if intent.Amount > v.perTransactionCap {
		return model.Receipt{}, rejectLimit(CodeExceedsPerTransactionCap, v.perTransactionCap, v.perTransactionCap, time.Time{},
			"amount %d exceeds per-transaction cap %d", intent.Amount, v.perTransactionCap)
	}

	if v.cooldown > 0 && !v.lastDisbursement.IsZero() {
		ready := v.lastDisbursement.Add(v.cooldown)
		if now.Before(ready) {
			return model.Receipt{}, &GuardrailError{
				Code:    CodeCooldownActive,
				Reason:  fmt.Sprintf("cooldown of %s active until %s", v.cooldown, ready.Format(time.RFC3339)),
				RetryAt: ready,
			}
		}
	}

	r, ok := v.recipients[intent.Recipient]
	if !ok {
		return model.Receipt{}, reject(CodeNotWhitelisted, "recipient %q is not whitelisted", intent.Recipient)
	}
	if !r.Active {
		return model.Receipt{}, reject(CodeRecipientInactive, "recipient %q is deactivated", intent.Recipient)
	}

	// Window checks read effective (reset-aware) counters without mutating,
	// so a later failure leaves even the lazy resets unapplied.
	dailySpent := r.effectiveDailySpent(now)
	if dailySpent+intent.Amount > r.DailyLimit {
		return model.Receipt{}, rejectLimit(CodeExceedsDailyLimit, r.DailyLimit, r.DailyLimit-dailySpent,
			window.NextReset(r.DailyLastReset, window.Day),
			"amount %d exceeds remaining daily allowance %d for %q", intent.Amount, r.DailyLimit-dailySpent, intent.Recipient)
	}
	monthlySpent := r.effectiveMonthlySpent(now)
	if monthlySpent+intent.Amount > r.MonthlyLimit {
		return model.Receipt{}, rejectLimit(CodeExceedsMonthlyLimit, r.MonthlyLimit, r.MonthlyLimit-monthlySpent,
			window.NextReset(r.MonthlyLastReset, window.Month),
			"amount %d exceeds remaining monthly allowance %d for %q", intent.Amount, r.MonthlyLimit-monthlySpent, intent.Recipient)
	}

	poolSpent := v.effectivePoolSpent(now)
	if poolSpent+intent.Amount > v.poolDailyCap {
		return model.Receipt{}, rejectLimit(CodeExceedsPoolDailyCap, v.poolDailyCap, v.poolDailyCap-poolSpent,
			window.NextReset(v.poolLastReset, window.Day),
			"amount %d exceeds remaining pool daily cap %d", intent.Amount, v.poolDailyCap-poolSpent)
	}

	balance, err := v.store.Balance()
	if err != nil {
		return model.Receipt{}, reject(CodeTransferFailed, "balance check failed: %v", err)
	}
	if intent.Amount > balance {
		return model.Receipt{}, rejectLimit(CodeInsufficientBalance, balance, balance, time.Time{},
			"amount %d exceeds pool balance %d", intent.Amount, balance)
	}

	// Every check passed. Execute the transfer first: if the store fails,
	// no vault state has moved and the intent stays valid.
	if err := v.store.Transfer(intent.Recipient, intent.Amount); err != nil {
		return model.Receipt{}, reject(CodeTransferFailed, "ledger transfer failed: %v", err)
	}

	r.applySpend(intent.Amount, now)
	v.applyPoolSpend(intent.Amount, now)
	v.lastDisbursement = now
	v.nonce++
	v.history.append(model.TransferRecord{
		Nonce:     intent.Nonce,
		Recipient: intent.Recipient,
		Amount:    intent.Amount,
		Memo:      intent.Memo,
		Timestamp: now,
	})

	return model.Receipt{Nonce: intent.Nonce, Timestamp: now}, nil
}

func (v *Vault) deadmanExpired(now time.Time) bool {
	return now.After(v.lastHeartbeat.Add(v.deadmanWindow))
}

func (v *Vault) effectivePoolSpent(now time.Time) int64 {
	if window.Elapsed(v.poolLastReset, window.Day, now) {
		return 0
	}
	return v.poolDailySpent
}

func (v *Vault) applyPoolSpend(amount int64, now time.Time) {
	if window.Elapsed(v.poolLastReset, window.Day, now) {
		v.poolDailySpent = 0
		v.poolLastReset = now
	}
	v.poolDailySpent += amount
}
