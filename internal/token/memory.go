package token

import (
	"context"
	"sync"
)

type allowanceKey struct {
	owner   AccountID
	spender AccountID
}

// MemoryStore is a concurrency-safe in-memory store, used in tests and when
// the service runs without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	supply     Amount
	supplySet  bool
	balances   map[AccountID]Amount
	allowances map[allowanceKey]Amount
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:   make(map[AccountID]Amount),
		allowances: make(map[allowanceKey]Amount),
	}
}

// Supply returns the recorded total supply, if any.
func (s *MemoryStore) Supply(_ context.Context) (Amount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, s.supplySet, nil
}

// Balance returns the stored balance for the account, zero when absent.
func (s *MemoryStore) Balance(_ context.Context, account AccountID) (Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// Allowance returns the stored allowance for the pair, zero when absent.
func (s *MemoryStore) Allowance(_ context.Context, owner, spender AccountID) (Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[allowanceKey{owner: owner, spender: spender}], nil
}

// SumBalances totals every stored balance.
func (s *MemoryStore) SumBalances(_ context.Context) (Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := Amount{}
	for _, balance := range s.balances {
		sum, err := total.Add(balance)
		if err != nil {
			return Amount{}, err
		}
		total = sum
	}
	return total, nil
}

// Apply commits every write in the changeset under a single lock acquisition.
func (s *MemoryStore) Apply(_ context.Context, change Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if change.Supply != nil {
		s.supply = *change.Supply
		s.supplySet = true
	}
	for _, w := range change.Balances {
		if w.Amount.IsZero() {
			delete(s.balances, w.Account)
			continue
		}
		s.balances[w.Account] = w.Amount
	}
	for _, w := range change.Allowances {
		key := allowanceKey{owner: w.Owner, spender: w.Spender}
		if w.Amount.IsZero() {
			delete(s.allowances, key)
			continue
		}
		s.allowances[key] = w.Amount
	}
	return nil
}
