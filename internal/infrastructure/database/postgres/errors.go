package postgres

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/scholar-etl/pkg/errors"
)

// SQLSTATE codes used to classify driver errors.
const (
	sqlStateDeadlock            = "40P01"
	sqlStateSerialization       = "40001"
	sqlStateLockNotAvailable    = "55P03"
	sqlStateUniqueViolation     = "23505"
	sqlStateConnectionException = "08"
)

// IsTransient reports whether err is a lock or deadlock class failure that
// is expected to succeed when the same statement is retried.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateDeadlock, sqlStateSerialization, sqlStateLockNotAvailable:
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// IsConnectionError reports whether err indicates the connection to the
// server was lost or could not be established.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, sqlStateConnectionException)
	}
	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return true
	}
	if stderrors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// classify wraps err with the pipeline error code matching its cause.
func classify(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeTimeout, message)
	case IsTransient(err):
		return errors.Transient(err, message)
	case IsConnectionError(err):
		return errors.Wrap(err, errors.ErrCodeStoreConnection, message)
	default:
		return errors.Wrap(err, errors.ErrCodeDatabaseError, message)
	}
}

//Personal.AI order the ending
