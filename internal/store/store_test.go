package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteDepositAndTransfer(t *testing.T) {
	s := openTestStore(t)

	if err := s.Deposit(500_00); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := s.Transfer("alice", 120_00); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	balance, err := s.Balance()
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 380_00 {
		t.Errorf("balance = %d, want 38000", balance)
	}

	n, err := s.TransferCount()
	if err != nil {
		t.Fatalf("TransferCount: %v", err)
	}
	if n != 1 {
		t.Errorf("transfer count = %d, want 1", n)
	}
}

func TestSQLiteOverdraftRollsBack(t *testing.T) {
	s := openTestStore(t)

	if err := s.Deposit(50_00); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := s.Transfer("alice", 100_00); err == nil {
		t.Fatal("expected overdraft to fail")
	}

	// The failed transfer must leave both the balance and the journal alone.
	balance, err := s.Balance()
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 50_00 {
		t.Errorf("balance after failed transfer = %d, want 5000", balance)
	}
	n, err := s.TransferCount()
	if err != nil {
		t.Fatalf("TransferCount: %v", err)
	}
	if n != 0 {
		t.Errorf("journal rows after failed transfer = %d, want 0", n)
	}
}

func TestSQLiteInputValidation(t *testing.T) {
	s := openTestStore(t)

	if err := s.Deposit(0); err == nil {
		t.Error("expected zero deposit to fail")
	}
	if err := s.Transfer("alice", -1); err == nil {
		t.Error("expected negative transfer to fail")
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Deposit(75_00); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	balance, err := s2.Balance()
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 75_00 {
		t.Errorf("balance after reopen = %d, want 7500", balance)
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore(100_00)

	if err := s.Transfer("alice", 40_00); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := s.Transfer("alice", 70_00); err == nil {
		t.Error("expected overdraft to fail")
	}
	if err := s.Deposit(10_00); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	balance, _ := s.Balance()
	if balance != 70_00 {
		t.Errorf("balance = %d, want 7000", balance)
	}
}
