package repository

import (
	"context"
	"database/sql"
	"errors"
)

// AccountRepo is the custodial ledger: one balance row per address.
// Every currency movement in the system is a credit or debit here, and
// both run inside the same transaction as the vault mutation they belong
// to, so a failed operation moves no money.
type AccountRepo struct {
	db DBTX
}

// NewAccountRepo returns an AccountRepo bound to the given handle.
func NewAccountRepo(db DBTX) *AccountRepo { return &AccountRepo{db: db} }

// Credit adds amount to the address balance, creating the row if needed.
func (r *AccountRepo) Credit(ctx context.Context, address string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (address, balance) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`, address, amount)
	return err
}

// Debit removes amount from the address balance.  The guard in the WHERE
// clause makes the check-and-subtract atomic: when the balance does not
// cover the amount, zero rows change and ErrInsufficientFunds is
// returned with no partial debit.
func (r *AccountRepo) Debit(ctx context.Context, address string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - ? WHERE address = ? AND balance >= ?`,
		amount, address, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Balance reads the current balance; an absent row reads as zero.
func (r *AccountRepo) Balance(ctx context.Context, address string) (uint64, error) {
	var v uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE address = ? LIMIT 1`, address).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}
