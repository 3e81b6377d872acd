package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

// RoleRepository manages the shared roles table.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName returns the role or sql.ErrNoRows.
func (r *RoleRepository) FindByName(ctx context.Context, exec sqlx.ExtContext, name models.RoleName) (*models.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = $1`
	var role models.Role
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &role, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// FindOrCreate resolves a role, creating it when missing. The insert relies on
// the unique name constraint; if a concurrent writer wins, the insert returns
// no row and the role is read back.
func (r *RoleRepository) FindOrCreate(ctx context.Context, exec sqlx.ExtContext, name models.RoleName) (*models.Role, error) {
	role, err := r.FindByName(ctx, exec, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	const insert = `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id, name`
	var created models.Role
	err = sqlx.GetContext(ctx, pick(r.db, exec), &created, insert, name)
	switch {
	case err == nil:
		return &created, nil
	case errors.Is(err, sql.ErrNoRows):
		return r.FindByName(ctx, exec, name)
	default:
		return nil, fmt.Errorf("create role: %w", err)
	}
}
