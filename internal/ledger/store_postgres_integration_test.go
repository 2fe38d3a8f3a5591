//go:build integration

package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "vaultgate/pkg/domain"
	"vaultgate/pkg/testutil/containers"
)

type PostgresBalanceStoreSuite struct {
	suite.Suite
	store *PostgresBalanceStore
	ctx   context.Context
}

func TestPostgresBalanceStoreSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)

	store := NewPostgresBalanceStore(pg.DB)
	require.NoError(t, store.Migrate(context.Background()))

	s := &PostgresBalanceStoreSuite{store: store, ctx: context.Background()}
	suite.Run(t, s)
}

func (s *PostgresBalanceStoreSuite) TestCreditDebitRoundTrip() {
	balance, err := s.store.Credit(s.ctx, "pg:alice", 1000)
	s.Require().NoError(err)
	s.Equal(id.Amount(1000), balance)

	balance, err = s.store.Debit(s.ctx, "pg:alice", 400)
	s.Require().NoError(err)
	s.Equal(id.Amount(600), balance)

	balance, err = s.store.Get(s.ctx, "pg:alice")
	s.Require().NoError(err)
	s.Equal(id.Amount(600), balance)
}

func (s *PostgresBalanceStoreSuite) TestDebitGuard() {
	_, err := s.store.Credit(s.ctx, "pg:bob", 100)
	s.Require().NoError(err)

	_, err = s.store.Debit(s.ctx, "pg:bob", 101)
	s.Require().ErrorIs(err, ErrInsufficientFunds)

	balance, err := s.store.Get(s.ctx, "pg:bob")
	s.Require().NoError(err)
	s.Equal(id.Amount(100), balance)
}

func (s *PostgresBalanceStoreSuite) TestUnknownPrincipal() {
	balance, err := s.store.Get(s.ctx, "pg:nobody")
	s.Require().NoError(err)
	assert.Equal(s.T(), id.Amount(0), balance)

	_, err = s.store.Debit(s.ctx, "pg:nobody", 1)
	s.Require().ErrorIs(err, ErrInsufficientFunds)
}

func (s *PostgresBalanceStoreSuite) TestFullUint64RangeSurvives() {
	const top = uint64(18446744073709551615)
	balance, err := s.store.Credit(s.ctx, "pg:max", id.Amount(top))
	s.Require().NoError(err)
	s.Equal(id.Amount(top), balance)

	_, err = s.store.Credit(s.ctx, "pg:max", 1)
	s.Require().ErrorIs(err, ErrOverflow)
}
