package admin

import (
	"context"
	"sync"
)

// SettingsStore persists the oracle settings record.
type SettingsStore interface {
	Get(ctx context.Context) (OracleSettings, error)
	Save(ctx context.Context, settings OracleSettings) error
}

// InMemorySettingsStore holds the single settings record under a mutex.
type InMemorySettingsStore struct {
	mu       sync.RWMutex
	settings OracleSettings
}

func NewInMemorySettingsStore(initial OracleSettings) *InMemorySettingsStore {
	return &InMemorySettingsStore{settings: initial}
}

func (s *InMemorySettingsStore) Get(_ context.Context) (OracleSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *InMemorySettingsStore) Save(_ context.Context, settings OracleSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
