package repository

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors surfaced from unique constraint violations.
var (
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrDuplicateToken   = errors.New("refresh token already stored")
	ErrDuplicateProfile = errors.New("profile already exists for user")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func pick(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}
