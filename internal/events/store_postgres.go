package events

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	id "vaultgate/pkg/domain"
)

// PostgresStore persists the event stream in PostgreSQL for operators who
// need the history to outlive the process.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventsSchema = `
CREATE TABLE IF NOT EXISTS custody_events (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	request_id TEXT NOT NULL,
	principal  TEXT NOT NULL DEFAULT '',
	amount     NUMERIC(20,0) NOT NULL DEFAULT 0,
	kind       TEXT NOT NULL DEFAULT '',
	emitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS custody_events_request_idx ON custody_events (request_id)`

// Migrate creates the events table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, eventsSchema); err != nil {
		return fmt.Errorf("migrate custody events: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO custody_events (event_type, request_id, principal, amount, kind, emitted_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(event.Type),
		event.RequestID.String(),
		event.Principal.String(),
		event.Amount.DecimalString(),
		event.Kind.String(),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]Event, error) {
	query := `
		SELECT event_type, request_id, principal, amount::text, kind, emitted_at
		FROM custody_events
		WHERE request_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event     Event
			eventType string
			reqID     string
			principal string
			amount    string
			kind      string
			emittedAt time.Time
		)
		if err := rows.Scan(&eventType, &reqID, &principal, &amount, &kind, &emittedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		v, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		event.Type = Type(eventType)
		event.RequestID = id.RequestID(reqID)
		event.Principal = id.Principal(principal)
		event.Amount = id.Amount(v)
		event.Kind = id.RequestKind(kind)
		event.Timestamp = emittedAt
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
