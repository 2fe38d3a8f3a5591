// Package treasury accounts for funds the system holds outside any balance:
// deposit escrow awaiting a verification outcome, vault reserves backing
// credited balances, and the outbound transfers (refunds, payouts) owed to
// principals.
package treasury

import (
	"context"
	"errors"
	"time"

	id "vaultgate/pkg/domain"
)

// Transfer is an outbound movement of held funds to a principal.
type Transfer struct {
	Principal id.Principal
	Amount    id.Amount
	At        time.Time
}

// Treasury tracks held funds. The custody service is its only caller: escrow
// invariants mirror the pending registry (escrow total equals the sum of
// live deposit escrow).
type Treasury interface {
	// Hold moves deposited value into escrow at dispatch time.
	Hold(ctx context.Context, principal id.Principal, amount id.Amount) error

	// Settle moves escrow into vault reserves once a deposit is approved and
	// the corresponding balance is credited.
	Settle(ctx context.Context, principal id.Principal, amount id.Amount) error

	// Refund returns escrow to the requester after a deposit rejection.
	Refund(ctx context.Context, principal id.Principal, amount id.Amount) error

	// Payout pays reserves out to the requester after an approved withdrawal.
	Payout(ctx context.Context, principal id.Principal, amount id.Amount) error

	// EscrowTotal returns the value currently held in escrow.
	EscrowTotal(ctx context.Context) (id.Amount, error)
}

// Accounting facts; reaching one of these means a custody invariant broke.
var (
	ErrEscrowUnderflow   = errors.New("escrow underflow")
	ErrReservesUnderflow = errors.New("reserves underflow")
)
