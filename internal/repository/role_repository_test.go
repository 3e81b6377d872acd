package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

func TestFindOrCreateReturnsExistingRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM roles WHERE name = $1")).
		WithArgs(models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "USER"))

	role, err := repo.FindOrCreate(context.Background(), nil, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), role.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateInsertsMissingRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery("SELECT id, name FROM roles").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id, name")).
		WithArgs(models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(7, "USER"))

	role, err := repo.FindOrCreate(context.Background(), nil, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(7), role.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateReadsBackAfterLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery("SELECT id, name FROM roles").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("INSERT INTO roles").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("SELECT id, name FROM roles").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "USER"))

	role, err := repo.FindOrCreate(context.Background(), nil, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(3), role.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
