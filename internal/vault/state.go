package vault

// Vault state persists as a single JSON document written atomically
// (tmp + rename), so a crash mid-save leaves the previous state intact.
// The ledger store is not part of the document: balances live with the
// store, guardrails live here.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/toanps/agentvault/internal/authz"
	"github.com/toanps/agentvault/internal/model"
)

// State is the serialized form of a Vault.
type State struct {
	Principal         string                 `json:"principal"`
	AuthorizingKey    string                 `json:"authorizing_key"`
	PoolDailyCap      int64                  `json:"pool_daily_cap"`
	PerTransactionCap int64                  `json:"per_transaction_cap"`
	CooldownSeconds   int64                  `json:"cooldown_seconds"`
	DeadmanWindowDays float64                `json:"deadman_window_days"`
	RotationDelay     int64                  `json:"rotation_delay_seconds"`
	HistorySize       int                    `json:"history_size"`
	Recipients        []Recipient            `json:"recipients"`
	PoolDailySpent    int64                  `json:"pool_daily_spent"`
	PoolLastReset     time.Time              `json:"pool_last_reset"`
	LastDisbursement  time.Time              `json:"last_disbursement"`
	Nonce             uint64                 `json:"nonce"`
	LastHeartbeat     time.Time              `json:"last_heartbeat"`
	PendingKey        string                 `json:"pending_key,omitempty"`
	PendingActivates  time.Time              `json:"pending_key_activates_at,omitempty"`
	Paused            bool                   `json:"paused"`
	History           []model.TransferRecord `json:"history"`
}

// Snapshot captures the vault as a State document.
func (v *Vault) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	recipients := make([]Recipient, 0, len(v.order))
	for _, id := range v.order {
		recipients = append(recipients, *v.recipients[id])
	}

	return State{
		Principal:         v.principal,
		AuthorizingKey:    v.authorizingKey,
		PoolDailyCap:      v.poolDailyCap,
		PerTransactionCap: v.perTransactionCap,
		CooldownSeconds:   int64(v.cooldown / time.Second),
		DeadmanWindowDays: v.deadmanWindow.Hours() / 24,
		RotationDelay:     int64(v.rotationDelay / time.Second),
		HistorySize:       len(v.history.buf),
		Recipients:        recipients,
		PoolDailySpent:    v.poolDailySpent,
		PoolLastReset:     v.poolLastReset,
		LastDisbursement:  v.lastDisbursement,
		Nonce:             v.nonce,
		LastHeartbeat:     v.lastHeartbeat,
		PendingKey:        v.pendingKey,
		PendingActivates:  v.pendingKeyActivatesAt,
		Paused:            v.paused,
		History:           v.history.snapshot(),
	}
}

// Save writes the vault state to path atomically.
func (v *Vault) Save(path string) error {
	state := v.Snapshot()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("vault: create state directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("vault: write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("vault: commit state: %w", err)
	}
	return nil
}

// Load restores a vault from a State document written by Save.
func Load(path string, store LedgerStore, verifier authz.Verifier, nowFn func() time.Time) (*Vault, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vault: read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("vault: parse state: %w", err)
	}
	return FromState(state, store, verifier, nowFn)
}

// FromState rebuilds a vault from its serialized form.
func FromState(state State, store LedgerStore, verifier authz.Verifier, nowFn func() time.Time) (*Vault, error) {
	v, err := New(store, verifier, Config{
		Principal:         state.Principal,
		AuthorizingKey:    state.AuthorizingKey,
		PoolDailyCap:      state.PoolDailyCap,
		PerTransactionCap: state.PerTransactionCap,
		Cooldown:          time.Duration(state.CooldownSeconds) * time.Second,
		DeadmanWindow:     time.Duration(state.DeadmanWindowDays * 24 * float64(time.Hour)),
		RotationDelay:     time.Duration(state.RotationDelay) * time.Second,
		HistorySize:       state.HistorySize,
		Now:               nowFn,
	})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range state.Recipients {
		r := state.Recipients[i]
		v.recipients[r.ID] = &r
		v.order = append(v.order, r.ID)
	}
	v.poolDailySpent = state.PoolDailySpent
	v.poolLastReset = state.PoolLastReset
	v.lastDisbursement = state.LastDisbursement
	v.nonce = state.Nonce
	v.lastHeartbeat = state.LastHeartbeat
	v.pendingKey = state.PendingKey
	v.pendingKeyActivatesAt = state.PendingActivates
	v.paused = state.Paused
	for _, rec := range state.History {
		v.history.append(rec)
	}

	return v, nil
}
