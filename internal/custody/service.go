// Package custody implements the gated fund flow: it dispatches verification
// requests to the oracle, tracks them while pending, and reconciles oracle
// outcomes into balance effects. It is the only writer of the ledger, the
// pending registry, and the treasury, and it serializes every mutation behind
// a single lock so each dispatch or reconciliation runs to completion before
// the next begins.
package custody

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vaultgate/internal/custody/metrics"
	"vaultgate/internal/events"
	"vaultgate/internal/ledger"
	"vaultgate/internal/pending"
	"vaultgate/internal/treasury"
	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/requestcontext"
)

// Service is the custody core. All fund state transitions flow through it.
type Service struct {
	ledger    *ledger.Ledger
	registry  pending.Registry
	treasury  treasury.Treasury
	oracle    Oracle
	settings  SettingsSource
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	// mu is the global mutation lock: dispatches and reconciliations never
	// interleave, so balance, escrow, and registry stay mutually consistent.
	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets the event sink. Without one, events are dropped.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func New(
	ldg *ledger.Ledger,
	registry pending.Registry,
	tsy treasury.Treasury,
	oracle Oracle,
	settings SettingsSource,
	opts ...Option,
) (*Service, error) {
	if ldg == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("pending registry is required")
	}
	if tsy == nil {
		return nil, fmt.Errorf("treasury is required")
	}
	if oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}

	s := &Service{
		ledger:   ldg,
		registry: registry,
		treasury: tsy,
		oracle:   oracle,
		settings: settings,
		logger:   slog.Default(),
		tracer:   otel.Tracer("vaultgate/custody"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RequestDeposit accepts funds into escrow and dispatches a deposit
// verification request. The deposited amount is NOT credited here; it sits in
// escrow until the oracle outcome arrives.
func (s *Service) RequestDeposit(ctx context.Context, requester id.Principal, amount id.Amount) (id.RequestID, error) {
	ctx, span := s.tracer.Start(ctx, "custody.RequestDeposit",
		trace.WithAttributes(attribute.String("requester", requester.String())))
	defer span.End()

	if err := validateDispatch(requester, amount); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requestID, err := s.dispatch(ctx, id.KindDeposit, requester, amount)
	if err != nil {
		return "", err
	}

	// Funds arrived with the call; from here they are held in escrow under
	// this request id.
	if err := s.treasury.Hold(ctx, requester, amount); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hold deposit in escrow")
	}

	if err := s.register(ctx, requestID, requester, amount, id.KindDeposit); err != nil {
		if refundErr := s.treasury.Refund(ctx, requester, amount); refundErr != nil {
			s.logger.ErrorContext(ctx, "failed to release escrow after registration failure",
				"request_id", requestID, "error", refundErr)
		}
		return "", err
	}

	s.emit(ctx, events.Event{
		Type:      events.TypeDepositRequested,
		RequestID: requestID,
		Principal: requester,
		Amount:    amount,
		Kind:      id.KindDeposit,
		Timestamp: requestcontext.Now(ctx),
	})
	s.refreshGauges(ctx)

	return requestID, nil
}

// RequestWithdrawal dispatches a withdrawal verification request. The balance
// check here gates dispatch only; funds stay untouched until the outcome
// arrives, and the check is repeated before paying out.
func (s *Service) RequestWithdrawal(ctx context.Context, requester id.Principal, amount id.Amount) (id.RequestID, error) {
	ctx, span := s.tracer.Start(ctx, "custody.RequestWithdrawal",
		trace.WithAttributes(attribute.String("requester", requester.String())))
	defer span.End()

	if err := validateDispatch(requester, amount); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.ledger.BalanceOf(ctx, requester)
	if err != nil {
		return "", err
	}
	if amount > balance {
		return "", dErrors.New(dErrors.CodeInsufficientFunds, "withdrawal amount exceeds balance")
	}

	requestID, err := s.dispatch(ctx, id.KindWithdrawal, requester, amount)
	if err != nil {
		return "", err
	}

	if err := s.register(ctx, requestID, requester, amount, id.KindWithdrawal); err != nil {
		return "", err
	}

	s.emit(ctx, events.Event{
		Type:      events.TypeWithdrawalRequested,
		RequestID: requestID,
		Principal: requester,
		Amount:    amount,
		Kind:      id.KindWithdrawal,
		Timestamp: requestcontext.Now(ctx),
	})
	s.refreshGauges(ctx)

	return requestID, nil
}

// BalanceOf reports the requester's available balance. Escrowed deposits and
// pending withdrawals do not move it.
func (s *Service) BalanceOf(ctx context.Context, principal id.Principal) (id.Amount, error) {
	if principal.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	return s.ledger.BalanceOf(ctx, principal)
}

func validateDispatch(requester id.Principal, amount id.Amount) error {
	if requester.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "requester is required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeZeroAmount, "amount must be greater than zero")
	}
	return nil
}

// dispatch snapshots the current oracle settings and sends the verification
// request. The returned request id is oracle-assigned and globally unique.
func (s *Service) dispatch(ctx context.Context, kind id.RequestKind, requester id.Principal, amount id.Amount) (id.RequestID, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load oracle settings")
	}

	requestID, err := s.oracle.Dispatch(ctx, VerificationRequest{
		Endpoint:       settings.Endpoint,
		Script:         settings.Script,
		Secrets:        settings.Secrets,
		Args:           buildArgs(kind, requester, amount),
		SubscriptionID: settings.SubscriptionID,
		GasLimit:       settings.GasLimit,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "oracle dispatch failed")
	}
	if requestID.IsNil() {
		return "", dErrors.New(dErrors.CodeInternal, "oracle returned an empty request id")
	}

	s.metrics.IncDispatch(kind.String())
	s.logger.InfoContext(ctx, "verification request dispatched",
		"request_id", requestID,
		"kind", kind,
		"requester", requester,
		"amount", amount,
	)
	return requestID, nil
}

func (s *Service) register(ctx context.Context, requestID id.RequestID, requester id.Principal, amount id.Amount, kind id.RequestKind) error {
	err := s.registry.Insert(ctx, pending.Request{
		RequestID:    requestID,
		Requester:    requester,
		Amount:       amount,
		Kind:         kind,
		DispatchedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConflict, "request id already pending")
	}
	return nil
}

// emit publishes fail-open: a lost event never fails the fund operation.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish custody event",
			"type", event.Type,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

func (s *Service) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.registry.Count(ctx); err == nil {
		s.metrics.SetPending(n)
	}
	if total, err := s.treasury.EscrowTotal(ctx); err == nil {
		s.metrics.SetEscrow(uint64(total))
	}
}
