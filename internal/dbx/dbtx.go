// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and helpers to run functions inside a transaction.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/cadete/internal/common"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgreSQL error codes we react to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeInvalidText          = "22P02"
)

// retryBase is the first backoff step of WithTxRetry.
var retryBase = 20 * time.Millisecond

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    // use tx instead of db
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// WithTxRetry is WithTx that reruns the whole transaction when PostgreSQL
// aborts it with a serialization failure or a deadlock. fn must therefore be
// safe to run more than once. At most maxRetries extra attempts are made with
// exponential backoff; the last error is returned unchanged.
func WithTxRetry(ctx context.Context, db *sql.DB, opts *sql.TxOptions, maxRetries uint64, fn func(ctx context.Context, tx DBTX) error) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))

	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		lastErr = WithTx(ctx, db, opts, fn)
		if IsRetryable(lastErr) {
			return retry.RetryableError(lastErr)
		}
		return lastErr
	})
	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}

// IsRetryable reports whether err is a transaction conflict that may succeed
// when the transaction is run again.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsInvalidText reports whether Postgres rejected a value for its column
// type, such as a malformed uuid.
func IsInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}

// CheckAffected turns the result of a single-row UPDATE or DELETE into an
// error: driver errors are wrapped, and zero affected rows is
// common.ErrorNotFound.
func CheckAffected(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
