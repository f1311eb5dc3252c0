package vault

// Read-only views. Each takes the vault lock briefly and returns copies, so
// readers observe one coherent point in time and can never alias internal
// state.

import (
	"time"

	"github.com/toanps/agentvault/internal/model"
	"github.com/toanps/agentvault/internal/window"
)

// Allowance is the reset-aware remaining headroom for one recipient.
type Allowance struct {
	Daily          int64
	Monthly        int64
	DailyResetAt   time.Time
	MonthlyResetAt time.Time
}

// RemainingAllowance reports how much a recipient can still receive today
// and this month, accounting for windows that have already elapsed.
func (v *Vault) RemainingAllowance(id string) (Allowance, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return Allowance{}, reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	now := v.nowFn().UTC()
	return Allowance{
		Daily:          r.RemainingDaily(now),
		Monthly:        r.RemainingMonthly(now),
		DailyResetAt:   window.NextReset(r.DailyLastReset, window.Day),
		MonthlyResetAt: window.NextReset(r.MonthlyLastReset, window.Month),
	}, nil
}

// Spending returns a recipient's reset-aware spend snapshot for the policy
// evaluator. Week is approximated as a quarter of the monthly total.
func (v *Vault) Spending(id string) (model.Spending, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return model.Spending{}, reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	now := v.nowFn().UTC()
	month := r.effectiveMonthlySpent(now)
	return model.Spending{
		Day:   r.effectiveDailySpent(now),
		Week:  month / 4,
		Month: month,
	}, nil
}

// Recipient returns a copy of one whitelist entry.
func (v *Vault) Recipient(id string) (Recipient, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return Recipient{}, reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	return *r, nil
}

// Recipients lists all whitelist entries in insertion order.
func (v *Vault) Recipients() []Recipient {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Recipient, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, *v.recipients[id])
	}
	return out
}

// GetHistory returns the most recent min(count, retained) executed
// disbursements in chronological order: oldest first, newest last.
func (v *Vault) GetHistory(count int) []model.TransferRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.history.recent(count)
}

// DeadmanStatus describes the liveness guard.
type DeadmanStatus struct {
	LastHeartbeat time.Time
	Window        time.Duration
	ExpiresAt     time.Time
	Expired       bool
}

// GetDeadmanStatus reports whether the deadman switch has tripped.
func (v *Vault) GetDeadmanStatus() DeadmanStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn().UTC()
	return DeadmanStatus{
		LastHeartbeat: v.lastHeartbeat,
		Window:        v.deadmanWindow,
		ExpiresAt:     v.lastHeartbeat.Add(v.deadmanWindow),
		Expired:       v.deadmanExpired(now),
	}
}

// PendingRotation describes a staged key rotation.
type PendingRotation struct {
	PendingKey  string
	ActivatesAt time.Time
}

// GetPendingRotation returns the staged rotation, if any.
func (v *Vault) GetPendingRotation() (PendingRotation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pendingKey == "" {
		return PendingRotation{}, false
	}
	return PendingRotation{PendingKey: v.pendingKey, ActivatesAt: v.pendingKeyActivatesAt}, true
}

// PoolStatus is the vault-wide daily window as it stands now.
type PoolStatus struct {
	Cap     int64
	Spent   int64
	ResetAt time.Time
}

// GetPoolStatus reports the pool cap and reset-aware spend.
func (v *Vault) GetPoolStatus() PoolStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn().UTC()
	return PoolStatus{
		Cap:     v.poolDailyCap,
		Spent:   v.effectivePoolSpent(now),
		ResetAt: window.NextReset(v.poolLastReset, window.Day),
	}
}

// TransferLimits describes the per-intent throttles: the single-transfer cap
// and, when a cooldown is still running, the instant it clears.
type TransferLimits struct {
	PerTransactionCap int64
	Cooldown          time.Duration
	CooldownReadyAt   time.Time // zero when no cooldown is pending
}

// GetTransferLimits reports the transaction cap and cooldown readiness.
func (v *Vault) GetTransferLimits() TransferLimits {
	v.mu.Lock()
	defer v.mu.Unlock()

	limits := TransferLimits{
		PerTransactionCap: v.perTransactionCap,
		Cooldown:          v.cooldown,
	}
	if v.cooldown > 0 && !v.lastDisbursement.IsZero() {
		if ready := v.lastDisbursement.Add(v.cooldown); v.nowFn().UTC().Before(ready) {
			limits.CooldownReadyAt = ready
		}
	}
	return limits
}

// Balance reads the pool balance from the ledger store.
func (v *Vault) Balance() (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.Balance()
}

// Nonce returns the current intent counter. An intent built against this
// value is only valid until the next successful disbursement.
func (v *Vault) Nonce() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nonce
}

// Paused reports the kill switch state.
func (v *Vault) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// AuthorizingKey returns the key intents must currently be signed with.
func (v *Vault) AuthorizingKey() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.authorizingKey
}
