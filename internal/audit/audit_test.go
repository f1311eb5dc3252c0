package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEntry(id string, amount int64, outcome string) Entry {
	return Entry{
		RequestID: id,
		Recipient: "alice",
		Amount:    amount,
		Reason:    "groceries",
		Outcome:   outcome,
		Detail:    "no rule objected",
		RulesHash: "sha256:abc",
	}
}

func TestRecordChainsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i, outcome := range []string{"approve", "deny", "escalate"} {
		if err := log.Record(testEntry("req-"+outcome, int64(i+1)*100, outcome)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	log.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	var first Entry
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.PrevHash != GenesisHash {
		t.Errorf("first prev_hash = %q, want genesis", first.PrevHash)
	}
	if first.Timestamp == "" {
		t.Error("timestamp must be stamped when empty")
	}

	var second Entry
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if second.PrevHash != HashLine(lines[0]) {
		t.Errorf("second prev_hash = %q, want hash of first line", second.PrevHash)
	}
}

func TestOpenResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := log.Record(testEntry("req-1", 100, "approve")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	log.Close()

	// Reopen and append; the chain must continue, not restart at genesis.
	log, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := log.Record(testEntry("req-2", 200, "deny")); err != nil {
		t.Fatalf("Record after reopen: %v", err)
	}
	log.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain broken after reopen: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 2 {
		t.Errorf("lines = %d, want 2", result.Lines)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Record(testEntry("req", int64(i+1)*100, "approve")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// Change an amount in the middle entry.
	tampered := strings.Replace(string(data), `"amount":200`, `"amount":999`, 1)
	if tampered == string(data) {
		t.Fatal("tamper target not found")
	}
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result := Verify(path)
	if result.Valid {
		t.Fatal("verify must fail after tampering")
	}
	if result.ErrorLine != 3 {
		t.Errorf("error line = %d, want 3 (first link after the edit)", result.ErrorLine)
	}
}

func TestVerifyEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()

	result := Verify(filepath.Join(dir, "missing.jsonl"))
	if result.Valid {
		t.Error("missing file must not verify")
	}

	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	result = Verify(empty)
	if !result.Valid || result.Lines != 0 {
		t.Errorf("empty log: %+v, want valid with 0 lines", result)
	}
}
