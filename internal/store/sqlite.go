// Package store provides ledger store backends for the vault. The SQLite
// store is the durable production backend; MemStore backs tests.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	balance INTEGER NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transfers (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient TEXT    NOT NULL,
	amount    INTEGER NOT NULL,
	created   TEXT    NOT NULL
);
INSERT OR IGNORE INTO pool (id, balance) VALUES (1, 0);
`

// SQLiteStore keeps the pool balance and transfer journal in a local
// SQLite database. Each Transfer debits the pool and appends the journal
// row inside one transaction, so the balance and the journal can never
// disagree.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// The vault serializes all writes already; one connection avoids
	// SQLITE_BUSY without a busy-timeout dance.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Balance returns the current pool balance in minor units.
func (s *SQLiteStore) Balance() (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM pool WHERE id = 1`).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("store: read balance: %w", err)
	}
	return balance, nil
}

// Deposit credits the pool.
func (s *SQLiteStore) Deposit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("store: deposit must be positive, got %d", amount)
	}
	_, err := s.db.Exec(`UPDATE pool SET balance = balance + ? WHERE id = 1`, amount)
	if err != nil {
		return fmt.Errorf("store: deposit: %w", err)
	}
	return nil
}

// Transfer debits the pool and records the transfer atomically. The CHECK
// constraint on the balance column makes an overdraft fail the transaction.
func (s *SQLiteStore) Transfer(to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("store: transfer must be positive, got %d", amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transfer: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE pool SET balance = balance - ? WHERE id = 1`, amount); err != nil {
		return fmt.Errorf("store: debit pool: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO transfers (recipient, amount, created) VALUES (?, ?, ?)`,
		to, amount, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("store: record transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transfer: %w", err)
	}
	return nil
}

// TransferCount reports how many transfers the journal holds.
func (s *SQLiteStore) TransferCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transfers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count transfers: %w", err)
	}
	return n, nil
}
