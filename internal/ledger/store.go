package ledger

import (
	"context"

	id "vaultgate/pkg/domain"
)

// BalanceStore persists principal balances. Stores are interface-driven to
// keep the domain logic testable and to allow swapping in-memory and
// PostgreSQL persistence without rewiring business code.
type BalanceStore interface {
	// Credit increases the balance and returns the new value. Fails with
	// ErrOverflow when the result would exceed the uint64 range; the balance
	// is unchanged on failure.
	Credit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error)

	// Debit decreases the balance and returns the new value. Fails with
	// ErrInsufficientFunds when amount exceeds the balance; the balance is
	// unchanged on failure (all-or-nothing).
	Debit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error)

	// Get returns the current balance; absent principals read as zero.
	Get(ctx context.Context, principal id.Principal) (id.Amount, error)
}
