package vault

// Administrative operations. These are principal-only: callers must gate
// them behind principal authorization before invoking the vault. Drain,
// Pause, Unpause, and Heartbeat stay reachable while paused: the kill
// switch must never lock the principal out of their own escape hatches.

import (
	"time"
)

// AddRecipient whitelists a new payee. Limits are validated up front:
// both must be positive and the monthly limit must cover the daily one.
func (v *Vault) AddRecipient(id, label, category string, dailyLimit, monthlyLimit int64) error {
	if err := validateLimits(dailyLimit, monthlyLimit); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if id == "" {
		return reject(CodeInvalidParameter, "recipient id must not be empty")
	}
	if _, exists := v.recipients[id]; exists {
		return reject(CodeDuplicateRecipient, "recipient %q already exists", id)
	}

	now := v.nowFn().UTC()
	v.recipients[id] = &Recipient{
		ID:               id,
		Label:            label,
		Category:         category,
		DailyLimit:       dailyLimit,
		MonthlyLimit:     monthlyLimit,
		DailyLastReset:   now,
		MonthlyLastReset: now,
		Active:           true,
		AddedAt:          now,
	}
	v.order = append(v.order, id)
	return nil
}

// UpdateLimits changes a recipient's spend limits. Spent counters are kept:
// lowering a limit below the current spend simply blocks further
// disbursements until the window resets.
func (v *Vault) UpdateLimits(id string, dailyLimit, monthlyLimit int64) error {
	if err := validateLimits(dailyLimit, monthlyLimit); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	r.DailyLimit = dailyLimit
	r.MonthlyLimit = monthlyLimit
	return nil
}

// DeactivateRecipient turns a recipient off. The entry and its counters are
// retained so ReactivateRecipient restores them as they were.
func (v *Vault) DeactivateRecipient(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	r.Active = false
	return nil
}

// ReactivateRecipient turns a deactivated recipient back on.
func (v *Vault) ReactivateRecipient(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.recipients[id]
	if !ok {
		return reject(CodeUnknownRecipient, "recipient %q not found", id)
	}
	r.Active = true
	return nil
}

// SetPoolDailyCap changes the vault-wide daily ceiling.
func (v *Vault) SetPoolDailyCap(cap int64) error {
	if cap <= 0 {
		return reject(CodeInvalidParameter, "pool daily cap must be positive, got %d", cap)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.poolDailyCap = cap
	return nil
}

// SetPerTransactionCap changes the single-disbursement ceiling.
func (v *Vault) SetPerTransactionCap(cap int64) error {
	if cap <= 0 {
		return reject(CodeInvalidParameter, "per-transaction cap must be positive, got %d", cap)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.perTransactionCap = cap
	return nil
}

// SetCooldown changes the minimum spacing between disbursements.
func (v *Vault) SetCooldown(d time.Duration) error {
	if d <= 0 {
		return reject(CodeInvalidParameter, "cooldown must be positive, got %s", d)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cooldown = d
	return nil
}

// SetDeadmanWindow changes how long the vault keeps disbursing without a
// heartbeat.
func (v *Vault) SetDeadmanWindow(d time.Duration) error {
	if d <= 0 {
		return reject(CodeInvalidParameter, "deadman window must be positive, got %s", d)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deadmanWindow = d
	return nil
}

// Heartbeat proves the principal is alive and re-arms the deadman switch.
// Reachable while paused.
func (v *Vault) Heartbeat() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastHeartbeat = v.nowFn().UTC()
	return v.lastHeartbeat
}

// Pause flips the kill switch on. Disbursements stop immediately.
func (v *Vault) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
}

// Unpause flips the kill switch off.
func (v *Vault) Unpause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = false
}

// ProposeKeyRotation stages a new authorizing key behind the timelock.
// At most one rotation can be pending, and rotating to the current key is
// rejected outright.
func (v *Vault) ProposeKeyRotation(newKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if newKey == "" {
		return reject(CodeInvalidParameter, "new key must not be empty")
	}
	if newKey == v.authorizingKey {
		return reject(CodeInvalidParameter, "new key matches the current authorizing key")
	}
	if v.pendingKey != "" {
		return reject(CodeRotationPending, "a rotation to %s is already pending", abbreviateKey(v.pendingKey))
	}

	v.pendingKey = newKey
	v.pendingKeyActivatesAt = v.nowFn().UTC().Add(v.rotationDelay)
	return nil
}

// ActivateKeyRotation swaps in the pending key once the timelock elapses.
// Signatures from the old key stop verifying from this point on.
func (v *Vault) ActivateKeyRotation() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pendingKey == "" {
		return reject(CodeNoPendingRotation, "no key rotation is pending")
	}
	now := v.nowFn().UTC()
	if now.Before(v.pendingKeyActivatesAt) {
		return &GuardrailError{
			Code:    CodeTimelockNotElapsed,
			Reason:  "rotation timelock has not elapsed",
			RetryAt: v.pendingKeyActivatesAt,
		}
	}

	v.authorizingKey = v.pendingKey
	v.pendingKey = ""
	v.pendingKeyActivatesAt = time.Time{}
	return nil
}

// CancelKeyRotation clears the pending slot.
func (v *Vault) CancelKeyRotation() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pendingKey == "" {
		return reject(CodeNoPendingRotation, "no key rotation is pending")
	}
	v.pendingKey = ""
	v.pendingKeyActivatesAt = time.Time{}
	return nil
}

// Deposit credits the pool through the ledger store.
func (v *Vault) Deposit(amount int64) error {
	if amount <= 0 {
		return reject(CodeInvalidAmount, "deposit must be positive, got %d", amount)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.store.Deposit(amount); err != nil {
		return reject(CodeTransferFailed, "deposit failed: %v", err)
	}
	return nil
}

// Drain transfers the entire balance back to the principal in one call.
// Works regardless of the pause state and fails only when there is nothing
// to drain. Spend counters are untouched: drain is an escape hatch, not a
// disbursement.
func (v *Vault) Drain() (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	balance, err := v.store.Balance()
	if err != nil {
		return 0, reject(CodeTransferFailed, "balance check failed: %v", err)
	}
	if balance <= 0 {
		return 0, reject(CodeNothingToDrain, "pool balance is zero")
	}
	if err := v.store.Transfer(v.principal, balance); err != nil {
		return 0, reject(CodeTransferFailed, "drain transfer failed: %v", err)
	}
	return balance, nil
}

func validateLimits(dailyLimit, monthlyLimit int64) error {
	if dailyLimit <= 0 || monthlyLimit <= 0 {
		return reject(CodeInvalidLimits, "limits must be positive (daily=%d monthly=%d)", dailyLimit, monthlyLimit)
	}
	if monthlyLimit < dailyLimit {
		return reject(CodeInvalidLimits, "monthly limit %d must be at least the daily limit %d", monthlyLimit, dailyLimit)
	}
	return nil
}

// abbreviateKey shortens a hex key for error messages.
func abbreviateKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12] + "..."
}
