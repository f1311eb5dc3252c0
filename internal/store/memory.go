package store

import (
	"fmt"
	"sync"
)

// MemStore is an in-memory ledger store. It exists for tests and for
// running the server against a throwaway pool.
type MemStore struct {
	mu      sync.Mutex
	balance int64
}

// NewMemStore creates a store seeded with the given balance.
func NewMemStore(balance int64) *MemStore {
	return &MemStore{balance: balance}
}

func (s *MemStore) Balance() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *MemStore) Deposit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("store: deposit must be positive, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += amount
	return nil
}

func (s *MemStore) Transfer(to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("store: transfer must be positive, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount > s.balance {
		return fmt.Errorf("store: balance %d cannot cover %d", s.balance, amount)
	}
	s.balance -= amount
	return nil
}
