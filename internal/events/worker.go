package events

import (
	"context"
	"log/slog"
)

// ChannelPublisher hands events to a buffered channel for asynchronous
// persistence by a Worker. Publish never blocks the custody critical section;
// when the buffer is full the event is dropped and counted against the
// fail-open contract.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "event inbox full, dropping event",
			"type", event.Type,
			"request_id", event.RequestID,
		)
		return nil
	}
}

func (p *ChannelPublisher) Close() error {
	close(p.inbox)
	return nil
}

// Inbox exposes the receive side for the Worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Worker consumes events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled or the inbox closes.
// Persistence failures are logged and skipped; the stream keeps flowing.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist event",
					"type", event.Type,
					"request_id", event.RequestID,
					"error", err,
				)
			}
		}
	}
}
