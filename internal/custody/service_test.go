package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgate/internal/admin"
	"vaultgate/internal/events"
	"vaultgate/internal/ledger"
	"vaultgate/internal/pending"
	"vaultgate/internal/treasury"
	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/testutil"
)

// fakeOracle assigns sequential request ids and records dispatches. Setting
// fail makes Dispatch error without assigning an id.
type fakeOracle struct {
	mu         sync.Mutex
	seq        int
	dispatched []VerificationRequest
	fail       bool
}

func (o *fakeOracle) Dispatch(_ context.Context, req VerificationRequest) (id.RequestID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return "", errors.New("oracle unreachable")
	}
	o.seq++
	o.dispatched = append(o.dispatched, req)
	return id.RequestID(fmt.Sprintf("req-%d", o.seq)), nil
}

func (o *fakeOracle) last() VerificationRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dispatched[len(o.dispatched)-1]
}

type custodyFixture struct {
	service  *Service
	ledger   *ledger.Ledger
	registry *pending.InMemoryRegistry
	treasury *treasury.InMemoryTreasury
	oracle   *fakeOracle
	sink     *events.MemorySink
}

func newFixture(t *testing.T) *custodyFixture {
	t.Helper()

	ldg, err := ledger.New(ledger.NewInMemoryBalanceStore(), ledger.WithLogger(discardLogger()))
	require.NoError(t, err)

	f := &custodyFixture{
		ledger:   ldg,
		registry: pending.NewInMemoryRegistry(),
		treasury: treasury.NewInMemoryTreasury(),
		oracle:   &fakeOracle{},
		sink:     events.NewMemorySink(),
	}

	settings := admin.NewInMemorySettingsStore(admin.OracleSettings{
		Script:         "const check = () => 1;",
		SubscriptionID: "sub-test",
		Endpoint:       "https://oracle.test/dispatch",
		GasLimit:       300_000,
	})

	f.service, err = New(f.ledger, f.registry, f.treasury, f.oracle, settings,
		WithLogger(discardLogger()),
		WithPublisher(f.sink),
	)
	require.NoError(t, err)
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// deposit runs a full approved-deposit round trip and returns the request id.
func (f *custodyFixture) deposit(t *testing.T, ctx context.Context, who id.Principal, amount id.Amount) id.RequestID {
	t.Helper()
	requestID, err := f.service.RequestDeposit(ctx, who, amount)
	require.NoError(t, err)
	_, err = f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)
	return requestID
}

func (f *custodyFixture) balance(t *testing.T, ctx context.Context, who id.Principal) id.Amount {
	t.Helper()
	balance, err := f.service.BalanceOf(ctx, who)
	require.NoError(t, err)
	return balance
}

const alice = id.Principal("alice")

func TestService_DepositApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requestID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)

	testutil.Then(t, "funds sit in escrow, not the balance", func(t *testing.T) {
		assert.Equal(t, id.Amount(0), f.balance(t, ctx, alice))
		total, err := f.treasury.EscrowTotal(ctx)
		require.NoError(t, err)
		assert.Equal(t, id.Amount(100), total)
	})

	event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)

	testutil.Then(t, "the balance is credited and escrow settled", func(t *testing.T) {
		assert.Equal(t, events.TypeDepositFulfilled, event.Type)
		assert.Equal(t, id.Amount(100), f.balance(t, ctx, alice))
		total, err := f.treasury.EscrowTotal(ctx)
		require.NoError(t, err)
		assert.Equal(t, id.Amount(0), total)
		assert.Equal(t, id.Amount(100), f.treasury.Reserves())
	})
}

func TestService_DepositRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requestID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)

	event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(false), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeDepositCancelled, event.Type)
	assert.Equal(t, id.Amount(0), f.balance(t, ctx, alice))

	refunds := f.treasury.Refunds()
	require.Len(t, refunds, 1, "escrow refunded exactly once")
	assert.Equal(t, alice, refunds[0].Principal)
	assert.Equal(t, id.Amount(100), refunds[0].Amount)

	total, err := f.treasury.EscrowTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.Amount(0), total)
}

func TestService_DepositErrorPayload_NoFundMovement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requestID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)

	event, err := f.service.HandleOutcome(ctx, requestID, nil, []byte("execution reverted"))
	require.NoError(t, err)

	assert.Equal(t, events.TypeRequestFailed, event.Type)
	assert.Equal(t, id.Amount(0), f.balance(t, ctx, alice))
	assert.Empty(t, f.treasury.Refunds(), "a failed run moves no funds")

	total, err := f.treasury.EscrowTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.Amount(100), total, "escrow stays held")
}

func TestService_WithdrawalApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 100)

	requestID, err := f.service.RequestWithdrawal(ctx, alice, 60)
	require.NoError(t, err)

	testutil.Then(t, "the balance is untouched while pending", func(t *testing.T) {
		assert.Equal(t, id.Amount(100), f.balance(t, ctx, alice))
	})

	event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeWithdrawalFulfilled, event.Type)
	assert.Equal(t, id.Amount(40), f.balance(t, ctx, alice))

	payouts := f.treasury.Payouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, id.Amount(60), payouts[0].Amount)
}

func TestService_WithdrawalRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 100)

	requestID, err := f.service.RequestWithdrawal(ctx, alice, 60)
	require.NoError(t, err)

	event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(false), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeWithdrawalCancelled, event.Type)
	assert.Equal(t, id.Amount(100), f.balance(t, ctx, alice))
	assert.Empty(t, f.treasury.Payouts())
}

func TestService_WithdrawalErrorPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 100)

	requestID, err := f.service.RequestWithdrawal(ctx, alice, 60)
	require.NoError(t, err)

	event, err := f.service.HandleOutcome(ctx, requestID, nil, []byte("timeout"))
	require.NoError(t, err)

	assert.Equal(t, events.TypeRequestFailed, event.Type)
	assert.Equal(t, id.Amount(100), f.balance(t, ctx, alice), "no debit on a failed run")
	assert.Empty(t, f.treasury.Payouts())
}

func TestService_ZeroAmountRejectedBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RequestDeposit(ctx, alice, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeZeroAmount))

	_, err = f.service.RequestWithdrawal(ctx, alice, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeZeroAmount))

	assert.Empty(t, f.oracle.dispatched, "nothing reaches the oracle")
	count, err := f.registry.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_WithdrawalExceedingBalanceRejectedAtDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 50)

	_, err := f.service.RequestWithdrawal(ctx, alice, 51)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	assert.Len(t, f.oracle.dispatched, 1, "only the funding deposit was dispatched")
}

func TestService_UnknownRequestID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	event, err := f.service.HandleOutcome(ctx, "req-never-dispatched", ApprovalPayload(true), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeNoPendingRequest, event.Type)
	assert.Equal(t, id.RequestID("req-never-dispatched"), event.RequestID)
}

func TestService_DuplicateCallbackIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requestID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)

	first, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)
	assert.Equal(t, events.TypeDepositFulfilled, first.Type)

	second, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)
	assert.Equal(t, events.TypeNoPendingRequest, second.Type)

	assert.Equal(t, id.Amount(100), f.balance(t, ctx, alice), "credited exactly once")
}

func TestService_BinaryGate(t *testing.T) {
	big := make([]byte, 32)
	for i := range big {
		big[i] = 0xFF
	}
	two := make([]byte, 32)
	two[31] = 2
	// 1 encoded in fewer than 32 bytes still decodes as 1
	shortOne := []byte{0x01}

	tests := []struct {
		name     string
		payload  []byte
		approved bool
	}{
		{"exactly one", ApprovalPayload(true), true},
		{"short one", shortOne, true},
		{"zero", ApprovalPayload(false), false},
		{"two", two, false},
		{"all bits set", big, false},
		{"empty payload", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)

			requestID, err := f.service.RequestDeposit(ctx, alice, 10)
			require.NoError(t, err)

			event, err := f.service.HandleOutcome(ctx, requestID, tt.payload, nil)
			require.NoError(t, err)

			if tt.approved {
				assert.Equal(t, events.TypeDepositFulfilled, event.Type)
			} else {
				assert.Equal(t, events.TypeDepositCancelled, event.Type)
			}
		})
	}
}

func TestService_WithdrawalRevalidatedAtReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 100)

	// Both withdrawals pass the dispatch-time check against the same balance.
	first, err := f.service.RequestWithdrawal(ctx, alice, 80)
	require.NoError(t, err)
	second, err := f.service.RequestWithdrawal(ctx, alice, 80)
	require.NoError(t, err)

	eventA, err := f.service.HandleOutcome(ctx, first, ApprovalPayload(true), nil)
	require.NoError(t, err)
	eventB, err := f.service.HandleOutcome(ctx, second, ApprovalPayload(true), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeWithdrawalFulfilled, eventA.Type)
	assert.Equal(t, events.TypeWithdrawalCancelled, eventB.Type, "second approval no longer covered")
	assert.Equal(t, id.Amount(20), f.balance(t, ctx, alice))
	require.Len(t, f.treasury.Payouts(), 1, "only the covered withdrawal paid out")
}

func TestService_OracleDispatchFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.oracle.fail = true

	_, err := f.service.RequestDeposit(ctx, alice, 100)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	total, escErr := f.treasury.EscrowTotal(ctx)
	require.NoError(t, escErr)
	assert.Equal(t, id.Amount(0), total, "no escrow held for a failed dispatch")
	count, cntErr := f.registry.Count(ctx)
	require.NoError(t, cntErr)
	assert.Zero(t, count)
}

func TestService_OracleArgsFollowProtocol(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "alice"}, f.oracle.last().Args)

	f.deposit(t, ctx, alice, 100)
	_, err = f.service.RequestWithdrawal(ctx, alice, 75)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "alice", "75"}, f.oracle.last().Args)
	assert.Equal(t, "sub-test", f.oracle.last().SubscriptionID)
	assert.Equal(t, uint64(300_000), f.oracle.last().GasLimit)
}

func TestService_EventTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requestID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)
	_, err = f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)

	assert.Equal(t, []events.Type{
		events.TypeDepositRequested,
		events.TypeDepositFulfilled,
	}, f.sink.Types())

	trail, err := f.sink.ListByRequest(ctx, requestID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, alice, trail[0].Principal)
	assert.Equal(t, id.Amount(100), trail[0].Amount)
}

func TestService_RoundTripPreservesTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.deposit(t, ctx, alice, 1000)

	requestID, err := f.service.RequestWithdrawal(ctx, alice, 1000)
	require.NoError(t, err)
	event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
	require.NoError(t, err)

	assert.Equal(t, events.TypeWithdrawalFulfilled, event.Type)
	assert.Equal(t, id.Amount(0), f.balance(t, ctx, alice))

	payouts := f.treasury.Payouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, id.Amount(1000), payouts[0].Amount, "the full deposit came back out")
	assert.Equal(t, id.Amount(0), f.treasury.Reserves())
}

func TestService_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deposit(t, ctx, alice, 100)

	const workers = 10
	requestIDs := make([]id.RequestID, workers)
	for i := range requestIDs {
		requestID, err := f.service.RequestWithdrawal(ctx, alice, 30)
		require.NoError(t, err)
		requestIDs[i] = requestID
	}

	var wg sync.WaitGroup
	for _, requestID := range requestIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
		}()
	}
	wg.Wait()

	// 100 / 30 covers exactly three payouts; the rest cancel.
	assert.Equal(t, id.Amount(10), f.balance(t, ctx, alice))
	assert.Len(t, f.treasury.Payouts(), 3)
}

func TestService_ExpirePending(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	ctx := testutil.Context("sweep-test", now)
	f := newFixture(t)

	depositID, err := f.service.RequestDeposit(ctx, alice, 100)
	require.NoError(t, err)
	f.deposit(t, ctx, id.Principal("bob"), 40)
	withdrawalID, err := f.service.RequestWithdrawal(ctx, id.Principal("bob"), 40)
	require.NoError(t, err)

	expired, err := f.service.ExpirePending(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	testutil.Then(t, "expiry behaves like rejection", func(t *testing.T) {
		refunds := f.treasury.Refunds()
		require.Len(t, refunds, 1, "deposit escrow refunded exactly once")
		assert.Equal(t, id.Amount(100), refunds[0].Amount)
		assert.Equal(t, id.Amount(40), f.balance(t, ctx, id.Principal("bob")), "withdrawal left untouched")
	})

	testutil.Then(t, "expired ids reconcile as unknown afterwards", func(t *testing.T) {
		for _, requestID := range []id.RequestID{depositID, withdrawalID} {
			event, err := f.service.HandleOutcome(ctx, requestID, ApprovalPayload(true), nil)
			require.NoError(t, err)
			assert.Equal(t, events.TypeNoPendingRequest, event.Type)
		}
	})
}
