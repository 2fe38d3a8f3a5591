package treasury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vaultgate/pkg/domain"
)

func TestInMemoryTreasury_EscrowLifecycle(t *testing.T) {
	tr := NewInMemoryTreasury()
	ctx := context.Background()

	require.NoError(t, tr.Hold(ctx, "alice", 1000))
	total, err := tr.EscrowTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.Amount(1000), total)

	t.Run("settle moves escrow to reserves", func(t *testing.T) {
		require.NoError(t, tr.Settle(ctx, "alice", 1000))
		total, err := tr.EscrowTotal(ctx)
		require.NoError(t, err)
		assert.Equal(t, id.Amount(0), total)
		assert.Equal(t, id.Amount(1000), tr.Reserves())
	})

	t.Run("payout drains reserves and is recorded", func(t *testing.T) {
		require.NoError(t, tr.Payout(ctx, "alice", 1000))
		assert.Equal(t, id.Amount(0), tr.Reserves())

		payouts := tr.Payouts()
		require.Len(t, payouts, 1)
		assert.Equal(t, id.Principal("alice"), payouts[0].Principal)
		assert.Equal(t, id.Amount(1000), payouts[0].Amount)
	})
}

func TestInMemoryTreasury_RefundRecorded(t *testing.T) {
	tr := NewInMemoryTreasury()
	ctx := context.Background()

	require.NoError(t, tr.Hold(ctx, "bob", 500))
	require.NoError(t, tr.Refund(ctx, "bob", 500))

	refunds := tr.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, id.Principal("bob"), refunds[0].Principal)
	assert.Equal(t, id.Amount(500), refunds[0].Amount)

	total, err := tr.EscrowTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.Amount(0), total)
}

func TestInMemoryTreasury_UnderflowGuards(t *testing.T) {
	tr := NewInMemoryTreasury()
	ctx := context.Background()

	require.ErrorIs(t, tr.Refund(ctx, "alice", 1), ErrEscrowUnderflow)
	require.ErrorIs(t, tr.Settle(ctx, "alice", 1), ErrEscrowUnderflow)
	require.ErrorIs(t, tr.Payout(ctx, "alice", 1), ErrReservesUnderflow)
}
