// Package events defines the observable events the custody core emits and the
// pipeline that carries them to external consumers. Publishing is fail-open:
// an event that cannot be delivered is logged and dropped, never allowed to
// fail or roll back the fund operation that produced it.
package events

import (
	"context"
	"time"

	id "vaultgate/pkg/domain"
)

// Type enumerates the observable events of the custody core.
type Type string

const (
	TypeDepositRequested    Type = "deposit_requested"
	TypeWithdrawalRequested Type = "withdrawal_requested"
	TypeDepositFulfilled    Type = "deposit_fulfilled"
	TypeDepositCancelled    Type = "deposit_cancelled"
	TypeWithdrawalFulfilled Type = "withdrawal_fulfilled"
	TypeWithdrawalCancelled Type = "withdrawal_cancelled"
	TypeRequestFailed       Type = "request_failed"
	TypeNoPendingRequest    Type = "no_pending_request"
	TypeRequestExpired      Type = "request_expired"
)

// Event records one observable fact about a verification request.
type Event struct {
	Type      Type           `json:"type"`
	RequestID id.RequestID   `json:"request_id"`
	Principal id.Principal   `json:"principal,omitempty"`
	Amount    id.Amount      `json:"amount,omitempty"`
	Kind      id.RequestKind `json:"kind,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Store persists events for later inspection.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]Event, error)
}
