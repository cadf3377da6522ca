package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

func TestCounterAddUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO protocol_counters (name, value)`)).
		WithArgs(lifecycle.CounterRevenue, uint64(500)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewCounterRepo(db)
	require.NoError(t, repo.Add(context.Background(), lifecycle.CounterRevenue, 500))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterSubFloorsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE protocol_counters`).
		WithArgs(uint64(900), uint64(900), lifecycle.CounterGasExcess).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCounterRepo(db)
	require.NoError(t, repo.Sub(context.Background(), lifecycle.CounterGasExcess, 900))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterZeroAmountSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCounterRepo(db)
	require.NoError(t, repo.Add(context.Background(), lifecycle.CounterRevenue, 0))
	require.NoError(t, repo.Sub(context.Background(), lifecycle.CounterRevenue, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterGetAbsentReadsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM protocol_counters WHERE name = ?`)).
		WithArgs(lifecycle.CounterAUMFees).
		WillReturnError(sql.ErrNoRows)

	repo := NewCounterRepo(db)
	v, err := repo.Get(context.Background(), lifecycle.CounterAUMFees)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}
