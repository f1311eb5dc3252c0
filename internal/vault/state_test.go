package vault

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	v, store, clk := newTestVault(t, Config{Cooldown: 30 * time.Second})

	// Exercise every piece of state before saving.
	if err := v.AddRecipient("bob", "Bob", "gaming", 50_00, 200_00); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}
	if _, err := v.SubmitIntent(intentFor(v, "alice", 100_00, clk)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := v.DeactivateRecipient("bob"); err != nil {
		t.Fatalf("DeactivateRecipient: %v", err)
	}
	if err := v.ProposeKeyRotation("key-2"); err != nil {
		t.Fatalf("ProposeKeyRotation: %v", err)
	}
	v.Pause()

	path := filepath.Join(t.TempDir(), "state", "vault.json")
	if err := v.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, store, fakeVerifier{}, clk.now)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(v.Snapshot(), loaded.Snapshot()) {
		t.Errorf("state mismatch after round trip:\nsaved:  %+v\nloaded: %+v", v.Snapshot(), loaded.Snapshot())
	}

	// The restored vault enforces the same guardrails.
	_, err = loaded.SubmitIntent(intentFor(loaded, "alice", 10_00, clk))
	wantCode(t, err, CodePaused)

	loaded.Unpause()
	clk.advance(time.Minute)
	receipt, err := loaded.SubmitIntent(intentFor(loaded, "alice", 10_00, clk))
	if err != nil {
		t.Fatalf("submit on restored vault: %v", err)
	}
	if receipt.Nonce != 1 {
		t.Errorf("restored nonce continues at %d, want 1", receipt.Nonce)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	v, _, _ := newTestVault(t, Config{})

	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")
	if err := v.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file must not survive a successful save")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("state file mode = %o, want 0600", perm)
	}
}

func TestLoadRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path, &fakeStore{}, fakeVerifier{}, time.Now)
	if err == nil {
		t.Fatal("expected parse error")
	}
}
