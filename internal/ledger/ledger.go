// Package ledger owns per-principal balances. It is the only component that
// mutates them, and only the custody reconciler calls the mutating methods;
// that restriction is enforced by construction, not by a permission check.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
)

// Ledger exposes balance reads and the two reconciliation-time effects.
type Ledger struct {
	store  BalanceStore
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(store BalanceStore, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("balance store is required")
	}

	l := &Ledger{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Credit increases the principal's balance by amount.
func (l *Ledger) Credit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	balance, err := l.store.Credit(ctx, principal, amount)
	if err != nil {
		if errors.Is(err, ErrOverflow) {
			return balance, dErrors.Wrap(err, dErrors.CodeConflict, "credit would overflow balance")
		}
		return balance, dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit balance")
	}

	l.logger.DebugContext(ctx, "balance credited",
		"principal", principal,
		"amount", amount,
		"balance", balance,
	)
	return balance, nil
}

// Debit decreases the principal's balance by amount, all-or-nothing.
func (l *Ledger) Debit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	balance, err := l.store.Debit(ctx, principal, amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return balance, dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "amount exceeds balance")
		}
		return balance, dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit balance")
	}

	l.logger.DebugContext(ctx, "balance debited",
		"principal", principal,
		"amount", amount,
		"balance", balance,
	)
	return balance, nil
}

// BalanceOf is a pure read; absent principals read as zero.
func (l *Ledger) BalanceOf(ctx context.Context, principal id.Principal) (id.Amount, error) {
	balance, err := l.store.Get(ctx, principal)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return balance, nil
}
