// Package repository implements the persistence layer over MySQL: the
// vault records, the heir and distribution indices, the protocol
// counters, timer handles, the oracle rate, the custodial ledger and the
// auth tables.  Sentinel errors defined here let higher layers map
// failure scenarios to API responses without inspecting SQL errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrVaultNotFound is returned when no vault record exists for an owner.
// Shared with the lifecycle package so errors.Is works across the Store
// boundary without the controller importing this package.
var ErrVaultNotFound = lifecycle.ErrVaultNotFound

// ErrInsufficientFunds is returned by Debit when the custodial account
// does not cover the requested amount.  No partial debit ever happens.
var ErrInsufficientFunds = lifecycle.ErrInsufficientFunds

// ErrEmailExists is returned when registering a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrAddressExists is returned when registering a duplicate wallet address.
var ErrAddressExists = errors.New("address already exists")

// DBTX is the subset of database/sql used by the repositories.  Both
// *sql.DB and *sql.Tx satisfy it, so the same repository code runs in
// autocommit mode and inside the Store's composite transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
