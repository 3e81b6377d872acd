package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

// RefreshTokenRepository is the ledger of issued refresh tokens.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository constructs the ledger.
func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Store inserts a ledger entry. A colliding token string yields ErrDuplicateToken.
func (r *RefreshTokenRepository) Store(ctx context.Context, exec sqlx.ExtContext, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at) VALUES (:id, :user_id, :token, :expires_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, token); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// FindByToken returns the entry for the token string or sql.ErrNoRows.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, exec sqlx.ExtContext, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// Delete removes an entry by id. Deleting a missing entry is not an error.
func (r *RefreshTokenRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM refresh_tokens WHERE id = $1`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every refresh token of the user and returns how many were removed.
func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, exec sqlx.ExtContext, userID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	result, err := pick(r.db, exec).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user refresh tokens: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("refresh token rows affected: %w", err)
	}
	return affected, nil
}
