package custody

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vaultgate/internal/events"
	id "vaultgate/pkg/domain"
	"vaultgate/pkg/requestcontext"
)

const sweepBatchSize = 64

// ExpirePending retires pending entries dispatched before cutoff, treating
// each as if the oracle had rejected it: expired deposits get their escrow
// refunded, expired withdrawals simply vanish, and every expiry is recorded.
// Returns the number of entries retired.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired, err := s.registry.TakeOlderThan(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("taking expired entries: %w", err)
	}

	for _, req := range expired {
		if req.Kind == id.KindDeposit {
			if err := s.treasury.Refund(ctx, req.Requester, req.Amount); err != nil {
				s.logger.ErrorContext(ctx, "failed to refund expired deposit escrow",
					"request_id", req.RequestID, "error", err)
			}
		}
		s.metrics.IncOutcome(req.Kind.String(), string(events.TypeRequestExpired))
		s.emit(ctx, events.Event{
			Type:      events.TypeRequestExpired,
			RequestID: req.RequestID,
			Principal: req.Requester,
			Amount:    req.Amount,
			Kind:      req.Kind,
			Timestamp: requestcontext.Now(ctx),
		})
	}

	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired pending requests retired", "count", len(expired))
		s.refreshGauges(ctx)
	}
	return len(expired), nil
}

// Sweeper periodically expires pending requests whose outcome never arrived.
// A zero TTL disables it entirely; the default configuration runs without
// expiry and pending entries wait forever, matching the core semantics.
type Sweeper struct {
	service  *Service
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:  service,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. Returns immediately when expiry
// is disabled.
func (w *Sweeper) Run(ctx context.Context) error {
	if w.ttl <= 0 {
		w.logger.InfoContext(ctx, "pending expiry disabled")
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "pending expiry sweeper started",
		"ttl", w.ttl, "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := w.service.ExpirePending(ctx, now.Add(-w.ttl)); err != nil {
				w.logger.ErrorContext(ctx, "pending expiry sweep failed", "error", err)
			}
		}
	}
}
