package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	id "vaultgate/pkg/domain"
)

// PostgresBalanceStore persists balances in PostgreSQL. Amounts live in a
// NUMERIC(20,0) column so the full uint64 range survives the round trip, and
// both mutations are single guarded statements so all-or-nothing semantics
// hold without an explicit transaction.
type PostgresBalanceStore struct {
	db *sql.DB
}

// NewPostgresBalanceStore constructs a PostgreSQL-backed balance store.
// Open the database with the pgx stdlib driver.
func NewPostgresBalanceStore(db *sql.DB) *PostgresBalanceStore {
	return &PostgresBalanceStore{db: db}
}

const balancesSchema = `
CREATE TABLE IF NOT EXISTS balances (
	principal  TEXT PRIMARY KEY,
	balance    NUMERIC(20,0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the balances table when it does not exist yet.
func (s *PostgresBalanceStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, balancesSchema); err != nil {
		return fmt.Errorf("migrate balances: %w", err)
	}
	return nil
}

func (s *PostgresBalanceStore) Credit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	query := `
		INSERT INTO balances (principal, balance, updated_at)
		VALUES ($1, $2::numeric, now())
		ON CONFLICT (principal) DO UPDATE SET
			balance = balances.balance + EXCLUDED.balance,
			updated_at = now()
		WHERE balances.balance + EXCLUDED.balance <= 18446744073709551615::numeric
		RETURNING balance::text
	`
	var raw string
	err := s.db.QueryRowContext(ctx, query, principal.String(), amount.DecimalString()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrOverflow
	}
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return parseBalance(raw)
}

func (s *PostgresBalanceStore) Debit(ctx context.Context, principal id.Principal, amount id.Amount) (id.Amount, error) {
	query := `
		UPDATE balances SET
			balance = balance - $2::numeric,
			updated_at = now()
		WHERE principal = $1 AND balance >= $2::numeric
		RETURNING balance::text
	`
	var raw string
	err := s.db.QueryRowContext(ctx, query, principal.String(), amount.DecimalString()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the principal has no row or the guard refused the debit;
		// both read as insufficient funds.
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return parseBalance(raw)
}

func (s *PostgresBalanceStore) Get(ctx context.Context, principal id.Principal) (id.Amount, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT balance::text FROM balances WHERE principal = $1`, principal.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return parseBalance(raw)
}

func parseBalance(raw string) (id.Amount, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored balance %q: %w", raw, err)
	}
	return id.Amount(v), nil
}
