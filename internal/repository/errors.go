// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrPoolEntryConsumed is returned by MarkConsumed when the entry was
	// already consumed. Callers recover by searching for another entry or
	// falling back to a waiting exchange; it is never surfaced to clients.
	ErrPoolEntryConsumed = errors.New("pool entry already consumed")

	// ErrExchangeResolved is returned by AssignReceivedPost when the exchange
	// already has a received post. The received_post_id transition is
	// NULL -> non-NULL exactly once.
	ErrExchangeResolved = errors.New("exchange already resolved")
)

// IsUniqueViolation reports whether err is a uniqueness-constraint violation.
// The unique indexes on posts(user_id, post_date) and
// exchanges(requester_user_id, exchange_date) are the last line of defense
// against concurrent double posts; the loser's violation is translated to an
// AlreadyPosted error at the service layer.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
