package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

const userColumns = `id, email, password_hash, enabled, email_verified, last_login, created_at, updated_at`

// UserRepository is the credential store backed by the users table. Every
// method accepts an optional executor so callers can run it inside a transaction.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ExistsByEmail reports whether an account already uses the email (case-insensitive).
func (r *UserRepository) ExistsByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &exists, query, email); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// FindByEmail returns a user and its roles by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return r.findOne(ctx, pick(r.db, exec), "find user by email", query, email)
}

// FindByID returns a user and its roles by identifier.
func (r *UserRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.findOne(ctx, pick(r.db, exec), "find user by id", query, id)
}

func (r *UserRepository) findOne(ctx context.Context, target sqlx.ExtContext, op, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := sqlx.GetContext(ctx, target, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	roles, err := r.rolesFor(ctx, target, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *UserRepository) rolesFor(ctx context.Context, target sqlx.ExtContext, userID string) ([]models.RoleName, error) {
	const query = `SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.name`
	roles := []models.RoleName{}
	if err := sqlx.SelectContext(ctx, target, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	return roles, nil
}

// Create inserts a new user. The email is stored lower-cased; a unique
// violation is reported as ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, enabled, email_verified, created_at, updated_at) VALUES (:id, :email, :password_hash, :enabled, :email_verified, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// AssignRole links a role to a user. Assigning a held role is a no-op.
func (r *UserRepository) AssignRole(ctx context.Context, exec sqlx.ExtContext, userID string, roleID int64) error {
	const query = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, exec sqlx.ExtContext, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
