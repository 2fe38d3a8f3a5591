package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(NewInMemoryBalanceStore())
	require.NoError(t, err)
	return l
}

func TestLedger_CreditAndRead(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	balance, err := l.Credit(ctx, "alice", 1000)
	require.NoError(t, err)
	assert.Equal(t, id.Amount(1000), balance)

	balance, err = l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id.Amount(1000), balance)

	balance, err = l.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, id.Amount(0), balance, "absent principal reads as zero")
}

func TestLedger_DebitAllOrNothing(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Credit(ctx, "alice", 1000)
	require.NoError(t, err)

	t.Run("debit over balance fails and leaves balance unchanged", func(t *testing.T) {
		_, err := l.Debit(ctx, "alice", 1001)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

		balance, err := l.BalanceOf(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id.Amount(1000), balance)
	})

	t.Run("exact debit drains to zero", func(t *testing.T) {
		balance, err := l.Debit(ctx, "alice", 1000)
		require.NoError(t, err)
		assert.Equal(t, id.Amount(0), balance)
	})

	t.Run("debit on empty balance fails", func(t *testing.T) {
		_, err := l.Debit(ctx, "alice", 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	t.Run("debit on unknown principal fails", func(t *testing.T) {
		_, err := l.Debit(ctx, "nobody", 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})
}

func TestLedger_CreditOverflowRefused(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Credit(ctx, "alice", id.Amount(math.MaxUint64))
	require.NoError(t, err)

	_, err = l.Credit(ctx, "alice", 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id.Amount(math.MaxUint64), balance, "failed credit must not move the balance")
}
