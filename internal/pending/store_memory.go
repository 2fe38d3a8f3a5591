package pending

import (
	"context"
	"sort"
	"sync"
	"time"

	id "vaultgate/pkg/domain"
	"vaultgate/pkg/platform/sentinel"
)

// InMemoryRegistry keeps pending requests in a mutex-guarded map. It is the
// default registry and the reference for the Redis implementation's atomicity
// contract: insert-once, take-once.
type InMemoryRegistry struct {
	mu      sync.Mutex
	entries map[id.RequestID]Request
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{entries: make(map[id.RequestID]Request)}
}

func (r *InMemoryRegistry) Insert(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[req.RequestID]; exists {
		return sentinel.ErrConflict
	}
	r.entries[req.RequestID] = req
	return nil
}

func (r *InMemoryRegistry) Take(_ context.Context, requestID id.RequestID) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.entries[requestID]
	if !ok {
		return Request{}, sentinel.ErrNotFound
	}
	delete(r.entries, requestID)
	return req, nil
}

func (r *InMemoryRegistry) TakeOlderThan(_ context.Context, cutoff time.Time, limit int) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Request
	for _, req := range r.entries {
		if req.DispatchedAt.Before(cutoff) {
			expired = append(expired, req)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].DispatchedAt.Before(expired[j].DispatchedAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, req := range expired {
		delete(r.entries, req.RequestID)
	}
	return expired, nil
}

func (r *InMemoryRegistry) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}
