package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

func TestAtomicallyCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO heir_index (heir, owner)`)).
		WithArgs("AU1heir", "AU1owner").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	err = store.Atomically(context.Background(), func(s lifecycle.Store) error {
		return s.AddHeir(context.Background(), "AU1heir", "AU1owner")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	store := NewStore(db)
	err = store.Atomically(context.Background(), func(lifecycle.Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultNotFoundMapsToSentinel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT owner, tier, unlock_date`).
		WithArgs("AU1ghost").
		WillReturnError(sql.ErrNoRows)

	store := NewStore(db)
	_, err = store.Vault(context.Background(), "AU1ghost")
	assert.ErrorIs(t, err, lifecycle.ErrVaultNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
