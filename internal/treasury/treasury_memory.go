package treasury

import (
	"context"
	"sync"

	id "vaultgate/pkg/domain"
	"vaultgate/pkg/requestcontext"
)

// InMemoryTreasury tracks escrow and reserves in process and records every
// outbound transfer. Production deployments would wire a real settlement
// backend behind the same interface; tests read the transfer records to
// assert that refunds and payouts happened exactly once.
type InMemoryTreasury struct {
	mu       sync.Mutex
	escrow   id.Amount
	reserves id.Amount
	refunds  []Transfer
	payouts  []Transfer
}

func NewInMemoryTreasury() *InMemoryTreasury {
	return &InMemoryTreasury{}
}

func (t *InMemoryTreasury) Hold(_ context.Context, _ id.Principal, amount id.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.escrow += amount
	return nil
}

func (t *InMemoryTreasury) Settle(_ context.Context, _ id.Principal, amount id.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount > t.escrow {
		return ErrEscrowUnderflow
	}
	t.escrow -= amount
	t.reserves += amount
	return nil
}

func (t *InMemoryTreasury) Refund(ctx context.Context, principal id.Principal, amount id.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount > t.escrow {
		return ErrEscrowUnderflow
	}
	t.escrow -= amount
	t.refunds = append(t.refunds, Transfer{
		Principal: principal,
		Amount:    amount,
		At:        requestcontext.Now(ctx),
	})
	return nil
}

func (t *InMemoryTreasury) Payout(ctx context.Context, principal id.Principal, amount id.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount > t.reserves {
		return ErrReservesUnderflow
	}
	t.reserves -= amount
	t.payouts = append(t.payouts, Transfer{
		Principal: principal,
		Amount:    amount,
		At:        requestcontext.Now(ctx),
	})
	return nil
}

func (t *InMemoryTreasury) EscrowTotal(_ context.Context) (id.Amount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.escrow, nil
}

// Reserves returns the vault reserve total.
func (t *InMemoryTreasury) Reserves() id.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reserves
}

// Refunds returns a copy of the recorded refund transfers.
func (t *InMemoryTreasury) Refunds() []Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transfer{}, t.refunds...)
}

// Payouts returns a copy of the recorded payout transfers.
func (t *InMemoryTreasury) Payouts() []Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transfer{}, t.payouts...)
}
