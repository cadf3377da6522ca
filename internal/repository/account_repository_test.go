package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountDebitInsufficientFunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Zero rows affected means the balance guard failed the WHERE clause.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET balance = balance - ?`)).
		WithArgs(uint64(100), "AU1owner", uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAccountRepo(db)
	err = repo.Debit(context.Background(), "AU1owner", 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountDebitSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET balance = balance - ?`)).
		WithArgs(uint64(40), "AU1owner", uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAccountRepo(db)
	require.NoError(t, repo.Debit(context.Background(), "AU1owner", 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreditUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts (address, balance)`)).
		WithArgs("AU1heir", uint64(25)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAccountRepo(db)
	require.NoError(t, repo.Credit(context.Background(), "AU1heir", 25))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountZeroAmountsAreNoops(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepo(db)
	require.NoError(t, repo.Credit(context.Background(), "AU1heir", 0))
	require.NoError(t, repo.Debit(context.Background(), "AU1heir", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountBalanceAbsentReadsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM accounts WHERE address = ?`)).
		WithArgs("AU1nobody").
		WillReturnError(sql.ErrNoRows)

	repo := NewAccountRepo(db)
	bal, err := repo.Balance(context.Background(), "AU1nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
