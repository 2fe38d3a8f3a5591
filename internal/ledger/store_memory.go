package ledger

import (
	"context"
	"math"
	"sync"

	id "vaultgate/pkg/domain"
)

// InMemoryBalanceStore keeps balances in a mutex-guarded map. It is the
// default store and the reference implementation for the guarded arithmetic
// the PostgreSQL store performs in SQL.
type InMemoryBalanceStore struct {
	mu       sync.RWMutex
	balances map[id.Principal]id.Amount
}

func NewInMemoryBalanceStore() *InMemoryBalanceStore {
	return &InMemoryBalanceStore{balances: make(map[id.Principal]id.Amount)}
}

func (s *InMemoryBalanceStore) Credit(_ context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.balances[principal]
	if amount > math.MaxUint64-current {
		return current, ErrOverflow
	}
	s.balances[principal] = current + amount
	return current + amount, nil
}

func (s *InMemoryBalanceStore) Debit(_ context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.balances[principal]
	if amount > current {
		return current, ErrInsufficientFunds
	}
	s.balances[principal] = current - amount
	return current - amount, nil
}

func (s *InMemoryBalanceStore) Get(_ context.Context, principal id.Principal) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[principal], nil
}
