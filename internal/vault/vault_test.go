package vault

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/toanps/agentvault/internal/model"
)

// fakeClock is a controllable wall clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeStore is an in-memory ledger store with injectable failures.
type fakeStore struct {
	balance     int64
	transfers   []string
	transferErr error
}

func (s *fakeStore) Balance() (int64, error) { return s.balance, nil }

func (s *fakeStore) Deposit(amount int64) error {
	s.balance += amount
	return nil
}

func (s *fakeStore) Transfer(to string, amount int64) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	s.balance -= amount
	s.transfers = append(s.transfers, to)
	return nil
}

// fakeVerifier accepts a signature iff it equals "sig-"+key. It lets tests
// exercise key rotation without real cryptography.
type fakeVerifier struct{}

func (fakeVerifier) Verify(digest, signature []byte, expectedKey string) bool {
	return bytes.Equal(signature, []byte("sig-"+expectedKey))
}

func signedBy(key string) []byte { return []byte("sig-" + key) }

const testKey = "key-1"

func newTestVault(t *testing.T, cfg Config) (*Vault, *fakeStore, *fakeClock) {
	t.Helper()

	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &fakeStore{balance: 1_000_00}

	if cfg.Principal == "" {
		cfg.Principal = "owner"
	}
	if cfg.AuthorizingKey == "" {
		cfg.AuthorizingKey = testKey
	}
	if cfg.PoolDailyCap == 0 {
		cfg.PoolDailyCap = 800_00
	}
	if cfg.PerTransactionCap == 0 {
		cfg.PerTransactionCap = 300_00
	}
	if cfg.DeadmanWindow == 0 {
		cfg.DeadmanWindow = 7 * 24 * time.Hour
	}
	cfg.Now = clk.now

	v, err := New(store, fakeVerifier{}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.AddRecipient("alice", "Alice", "family", 500_00, 2_000_00); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}
	return v, store, clk
}

// intentFor builds a valid signed intent at the vault's current nonce.
func intentFor(v *Vault, recipient string, amount int64, clk *fakeClock) model.Intent {
	return model.Intent{
		Recipient:     recipient,
		Amount:        amount,
		Memo:          "test",
		Nonce:         v.Nonce(),
		ExpiresAt:     clk.now().Add(time.Hour),
		Authorization: signedBy(testKey),
	}
}

func wantCode(t *testing.T, err error, code Code) *GuardrailError {
	t.Helper()
	var ge *GuardrailError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GuardrailError %s, got %v", code, err)
	}
	if ge.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, ge.Code, ge.Reason)
	}
	return ge
}

func TestSubmitExecutesAndAdvancesNonce(t *testing.T) {
	v, store, clk := newTestVault(t, Config{})

	receipt, err := v.SubmitIntent(intentFor(v, "alice", 100_00, clk))
	if err != nil {
		t.Fatalf("SubmitIntent: %v", err)
	}
	if receipt.Nonce != 0 {
		t.Errorf("first receipt nonce = %d, want 0", receipt.Nonce)
	}
	if v.Nonce() != 1 {
		t.Errorf("nonce after success = %d, want 1", v.Nonce())
	}
	if store.balance != 900_00 {
		t.Errorf("balance = %d, want 90000", store.balance)
	}
	if len(store.transfers) != 1 || store.transfers[0] != "alice" {
		t.Errorf("transfers = %v, want [alice]", store.transfers)
	}
}

func TestReplayedIntentRejected(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	intent := intentFor(v, "alice", 100_00, clk)
	if _, err := v.SubmitIntent(intent); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := v.SubmitIntent(intent)
	wantCode(t, err, CodeStaleNonce)

	if v.Nonce() != 1 {
		t.Errorf("nonce must not advance on rejection, got %d", v.Nonce())
	}
}

func TestRejectionLeavesStateUntouched(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	// One successful disbursement so every counter is non-zero.
	if _, err := v.SubmitIntent(intentFor(v, "alice", 100_00, clk)); err != nil {
		t.Fatalf("setup submit: %v", err)
	}
	clk.advance(time.Minute)

	before := v.Snapshot()

	// Over the per-transaction cap: rejected at step 6.
	_, err := v.SubmitIntent(intentFor(v, "alice", 301_00, clk))
	wantCode(t, err, CodeExceedsPerTransactionCap)

	after := v.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rejection changed state:\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestExpiredIntent(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	intent := intentFor(v, "alice", 100_00, clk)
	clk.advance(2 * time.Hour)

	_, err := v.SubmitIntent(intent)
	wantCode(t, err, CodeDeadlineExpired)
}

func TestInvalidAuthorization(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	intent := intentFor(v, "alice", 100_00, clk)
	intent.Authorization = []byte("sig-wrong-key")

	_, err := v.SubmitIntent(intent)
	wantCode(t, err, CodeInvalidAuthorization)

	// Malformed bytes fail identically: no oracle distinguishing the two.
	intent.Authorization = []byte{0xff}
	_, err = v.SubmitIntent(intent)
	wantCode(t, err, CodeInvalidAuthorization)
}

func TestAmountValidation(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	_, err := v.SubmitIntent(intentFor(v, "alice", 0, clk))
	wantCode(t, err, CodeInvalidAmount)

	_, err = v.SubmitIntent(intentFor(v, "alice", -5, clk))
	wantCode(t, err, CodeInvalidAmount)
}

func TestPerTransactionCapIndependentOfRecipientLimit(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	// Recipient could take 5000, the cap still binds each single intent.
	if err := v.UpdateLimits("alice", 5_000_00, 10_000_00); err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}

	_, err := v.SubmitIntent(intentFor(v, "alice", 300_01, clk))
	ge := wantCode(t, err, CodeExceedsPerTransactionCap)
	if ge.Limit != 300_00 {
		t.Errorf("error limit = %d, want 30000", ge.Limit)
	}
}

func TestCooldown(t *testing.T) {
	v, _, clk := newTestVault(t, Config{Cooldown: 60 * time.Second})

	if _, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk)); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	ge := wantCode(t, err, CodeCooldownActive)
	if ge.RetryAt.IsZero() {
		t.Error("cooldown error must carry RetryAt")
	}

	clk.advance(61 * time.Second)
	if _, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk)); err != nil {
		t.Fatalf("submit after cooldown: %v", err)
	}
}

func TestDailyWindowReset(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	// Spend the daily limit exactly, in two parts (cap is 300).
	if _, err := v.SubmitIntent(intentFor(v, "alice", 300_00, clk)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := v.SubmitIntent(intentFor(v, "alice", 200_00, clk)); err != nil {
		t.Fatalf("second: %v", err)
	}

	_, err := v.SubmitIntent(intentFor(v, "alice", 1_00, clk))
	ge := wantCode(t, err, CodeExceedsDailyLimit)
	if ge.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", ge.Remaining)
	}

	// Window elapses: the counter restarts from zero, not 500+.
	clk.advance(24 * time.Hour)
	if _, err := v.SubmitIntent(intentFor(v, "alice", 100_00, clk)); err != nil {
		t.Fatalf("submit after window: %v", err)
	}
	r, err := v.Recipient("alice")
	if err != nil {
		t.Fatalf("Recipient: %v", err)
	}
	if r.DailySpent != 100_00 {
		t.Errorf("daily spent after reset = %d, want 10000", r.DailySpent)
	}
}

func TestMonthlyLimit(t *testing.T) {
	v, _, clk := newTestVault(t, Config{PoolDailyCap: 10_000_00, PerTransactionCap: 600_00})

	if err := v.UpdateLimits("alice", 600_00, 700_00); err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}

	if _, err := v.SubmitIntent(intentFor(v, "alice", 600_00, clk)); err != nil {
		t.Fatalf("first: %v", err)
	}

	// Next day the daily window is fresh but the monthly one still binds.
	clk.advance(24 * time.Hour)
	_, err := v.SubmitIntent(intentFor(v, "alice", 200_00, clk))
	wantCode(t, err, CodeExceedsMonthlyLimit)

	clk.advance(30 * 24 * time.Hour)
	if _, err := v.SubmitIntent(intentFor(v, "alice", 200_00, clk)); err != nil {
		t.Fatalf("submit after monthly window: %v", err)
	}
}

func TestPoolDailyCap(t *testing.T) {
	v, _, clk := newTestVault(t, Config{PoolDailyCap: 400_00})

	if err := v.AddRecipient("bob", "Bob", "family", 500_00, 2_000_00); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}

	if _, err := v.SubmitIntent(intentFor(v, "alice", 300_00, clk)); err != nil {
		t.Fatalf("first: %v", err)
	}

	// Bob has headroom, the pool does not.
	_, err := v.SubmitIntent(intentFor(v, "bob", 200_00, clk))
	ge := wantCode(t, err, CodeExceedsPoolDailyCap)
	if ge.Remaining != 100_00 {
		t.Errorf("pool remaining = %d, want 10000", ge.Remaining)
	}

	clk.advance(24 * time.Hour)
	if _, err := v.SubmitIntent(intentFor(v, "bob", 200_00, clk)); err != nil {
		t.Fatalf("submit after pool window: %v", err)
	}
}

func TestInsufficientBalance(t *testing.T) {
	v, store, clk := newTestVault(t, Config{})
	store.balance = 40_00

	_, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	wantCode(t, err, CodeInsufficientBalance)
}

func TestTransferFailureLeavesStateUntouched(t *testing.T) {
	v, store, clk := newTestVault(t, Config{})
	store.transferErr = errors.New("ledger offline")

	before := v.Snapshot()
	_, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	wantCode(t, err, CodeTransferFailed)

	if !reflect.DeepEqual(before, v.Snapshot()) {
		t.Error("failed transfer must not change vault state")
	}
}

func TestDeadmanSwitch(t *testing.T) {
	v, _, clk := newTestVault(t, Config{DeadmanWindow: 3 * 24 * time.Hour})

	clk.advance(3*24*time.Hour + time.Minute)
	_, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	wantCode(t, err, CodeDeadmanTriggered)

	// A heartbeat re-arms the switch.
	v.Heartbeat()
	if _, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk)); err != nil {
		t.Fatalf("submit after heartbeat: %v", err)
	}

	status := v.GetDeadmanStatus()
	if status.Expired {
		t.Error("deadman must not report expired right after heartbeat")
	}
}

func TestHeartbeatBeforeExpiryKeepsVaultAlive(t *testing.T) {
	v, _, clk := newTestVault(t, Config{DeadmanWindow: 3 * 24 * time.Hour})

	clk.advance(2 * 24 * time.Hour)
	v.Heartbeat()
	clk.advance(2 * 24 * time.Hour)

	if _, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk)); err != nil {
		t.Fatalf("submit within renewed window: %v", err)
	}
}

func TestPauseBlocksSubmitButNotEscapeHatches(t *testing.T) {
	v, store, clk := newTestVault(t, Config{})
	v.Pause()

	_, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	wantCode(t, err, CodePaused)

	// Heartbeat and drain stay reachable while paused.
	v.Heartbeat()
	drained, err := v.Drain()
	if err != nil {
		t.Fatalf("Drain while paused: %v", err)
	}
	if drained != 1_000_00 {
		t.Errorf("drained = %d, want 100000", drained)
	}
	if store.transfers[len(store.transfers)-1] != "owner" {
		t.Error("drain must pay the principal")
	}

	v.Unpause()
	_, err = v.Drain()
	wantCode(t, err, CodeNothingToDrain)
}

func TestRecipientChecks(t *testing.T) {
	v, _, clk := newTestVault(t, Config{})

	_, err := v.SubmitIntent(intentFor(v, "mallory", 50_00, clk))
	wantCode(t, err, CodeNotWhitelisted)

	if err := v.DeactivateRecipient("alice"); err != nil {
		t.Fatalf("DeactivateRecipient: %v", err)
	}
	_, err = v.SubmitIntent(intentFor(v, "alice", 50_00, clk))
	wantCode(t, err, CodeRecipientInactive)

	if err := v.ReactivateRecipient("alice"); err != nil {
		t.Fatalf("ReactivateRecipient: %v", err)
	}
	if _, err := v.SubmitIntent(intentFor(v, "alice", 50_00, clk)); err != nil {
		t.Fatalf("submit after reactivation: %v", err)
	}
}

func TestPausedWinsOverExpiry(t *testing.T) {
	// First failure wins: a paused vault reports Paused even for an intent
	// that is also expired.
	v, _, clk := newTestVault(t, Config{})
	intent := intentFor(v, "alice", 50_00, clk)
	clk.advance(2 * time.Hour)
	v.Pause()

	_, err := v.SubmitIntent(intent)
	wantCode(t, err, CodePaused)
}
