package custody

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vaultgate/internal/events"
	"vaultgate/internal/pending"
	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/platform/sentinel"
	"vaultgate/pkg/requestcontext"
)

// HandleOutcome reconciles one oracle callback. Exactly one of successPayload
// and errPayload carries the outcome: a non-empty errPayload marks the
// verification run itself as failed, otherwise successPayload is decoded as
// the binary approval gate.
//
// The pending entry is consumed unconditionally, whatever the outcome, so a
// request id can be reconciled at most once; a second callback for the same
// id lands on the unknown-id path. The returned event is the fact recorded
// for this callback.
func (s *Service) HandleOutcome(ctx context.Context, requestID id.RequestID, successPayload, errPayload []byte) (events.Event, error) {
	ctx, span := s.tracer.Start(ctx, "custody.HandleOutcome",
		trace.WithAttributes(attribute.String("request_id", requestID.String())))
	defer span.End()

	started := time.Now()
	defer func() {
		s.metrics.ObserveReconcileLatency(time.Since(started))
	}()

	if requestID.IsNil() {
		return events.Event{}, dErrors.New(dErrors.CodeInvalidInput, "request_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.registry.Take(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Unknown or already-consumed id. Recorded, never an error: the
			// oracle's retry of a handled callback lands here.
			event := events.Event{
				Type:      events.TypeNoPendingRequest,
				RequestID: requestID,
				Timestamp: requestcontext.Now(ctx),
			}
			s.metrics.IncOutcome("unknown", "no_pending_request")
			s.logger.WarnContext(ctx, "outcome for unknown request id", "request_id", requestID)
			s.emit(ctx, event)
			return event, nil
		}
		return events.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume pending request")
	}

	eventType := s.applyOutcome(ctx, req, successPayload, errPayload)

	event := events.Event{
		Type:      eventType,
		RequestID: req.RequestID,
		Principal: req.Requester,
		Amount:    req.Amount,
		Kind:      req.Kind,
		Timestamp: requestcontext.Now(ctx),
	}
	s.metrics.IncOutcome(req.Kind.String(), string(eventType))
	s.logger.InfoContext(ctx, "verification request reconciled",
		"request_id", req.RequestID,
		"kind", req.Kind,
		"outcome", eventType,
	)
	s.emit(ctx, event)
	s.refreshGauges(ctx)

	return event, nil
}

// applyOutcome performs the fund effects for a consumed pending entry and
// returns the event type describing what happened.
func (s *Service) applyOutcome(ctx context.Context, req pending.Request, successPayload, errPayload []byte) events.Type {
	if len(errPayload) > 0 {
		// The verification run failed outright. No funds move in either
		// direction; a failed deposit's escrow stays held.
		s.logger.WarnContext(ctx, "verification run failed",
			"request_id", req.RequestID,
			"error_payload_len", len(errPayload),
		)
		return events.TypeRequestFailed
	}

	approved := Approved(successPayload)

	switch req.Kind {
	case id.KindDeposit:
		if !approved {
			return s.refundDeposit(ctx, req, events.TypeDepositCancelled)
		}
		return s.settleDeposit(ctx, req)
	case id.KindWithdrawal:
		if !approved {
			return events.TypeWithdrawalCancelled
		}
		return s.payOutWithdrawal(ctx, req)
	default:
		// Unreachable for entries the dispatcher wrote.
		s.logger.ErrorContext(ctx, "pending entry has unknown kind",
			"request_id", req.RequestID, "kind", req.Kind)
		return events.TypeRequestFailed
	}
}

func (s *Service) settleDeposit(ctx context.Context, req pending.Request) events.Type {
	if err := s.treasury.Settle(ctx, req.Requester, req.Amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to settle deposit escrow",
			"request_id", req.RequestID, "error", err)
		return events.TypeRequestFailed
	}
	if _, err := s.ledger.Credit(ctx, req.Requester, req.Amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to credit settled deposit",
			"request_id", req.RequestID, "error", err)
		return events.TypeRequestFailed
	}
	return events.TypeDepositFulfilled
}

func (s *Service) refundDeposit(ctx context.Context, req pending.Request, onSuccess events.Type) events.Type {
	if err := s.treasury.Refund(ctx, req.Requester, req.Amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to refund deposit escrow",
			"request_id", req.RequestID, "error", err)
		return events.TypeRequestFailed
	}
	return onSuccess
}

// payOutWithdrawal re-checks funds at reconciliation time. The dispatch-time
// balance check is advisory only; an intervening withdrawal may have drained
// the balance, in which case the withdrawal is cancelled rather than driving
// the balance negative.
func (s *Service) payOutWithdrawal(ctx context.Context, req pending.Request) events.Type {
	if _, err := s.ledger.Debit(ctx, req.Requester, req.Amount); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientFunds) {
			s.logger.WarnContext(ctx, "withdrawal no longer covered at reconciliation",
				"request_id", req.RequestID,
				"requester", req.Requester,
				"amount", req.Amount,
			)
			return events.TypeWithdrawalCancelled
		}
		s.logger.ErrorContext(ctx, "failed to debit approved withdrawal",
			"request_id", req.RequestID, "error", err)
		return events.TypeRequestFailed
	}

	if err := s.treasury.Payout(ctx, req.Requester, req.Amount); err != nil {
		// Compensate the debit so the requester is not charged for a payout
		// that never left the vault.
		s.logger.ErrorContext(ctx, "failed to pay out withdrawal",
			"request_id", req.RequestID, "error", err)
		if _, creditErr := s.ledger.Credit(ctx, req.Requester, req.Amount); creditErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore balance after payout failure",
				"request_id", req.RequestID, "error", creditErr)
		}
		return events.TypeRequestFailed
	}
	return events.TypeWithdrawalFulfilled
}
