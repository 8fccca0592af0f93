package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLockTimeout is returned when a row lock could not be taken within the lock timeout.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrDuplicateLink is returned when either side of a follow-up link already exists.
	ErrDuplicateLink = errors.New("position is already linked")
)

const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isLockTimeout(err error) bool {
	return pgCode(err) == pgLockNotAvailable
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation
}
