// Package pending owns the set of in-flight verification requests. An entry
// exists from dispatch until exactly one reconciliation consumes it; entries
// are never mutated in place.
package pending

import (
	"context"
	"time"

	id "vaultgate/pkg/domain"
)

// Request is one in-flight verification request awaiting its outcome callback.
type Request struct {
	RequestID    id.RequestID   `json:"request_id"`
	Requester    id.Principal   `json:"requester"`
	Amount       id.Amount      `json:"amount"`
	Kind         id.RequestKind `json:"kind"`
	DispatchedAt time.Time      `json:"dispatched_at"`
}

// Registry stores pending requests keyed by their globally unique request id.
//
// Implementations return sentinel.ErrConflict from Insert when the id is
// already live, and sentinel.ErrNotFound from Take when the id is unknown or
// already consumed.
type Registry interface {
	// Insert records a freshly dispatched request.
	Insert(ctx context.Context, req Request) error

	// Take atomically removes and returns the entry for requestID. A given
	// id can therefore be consumed at most once.
	Take(ctx context.Context, requestID id.RequestID) (Request, error)

	// TakeOlderThan consumes up to limit entries dispatched before cutoff.
	// Used by the optional expiry sweeper.
	TakeOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Request, error)

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)
}
