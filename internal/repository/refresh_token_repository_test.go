package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

func TestStoreRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Store(context.Background(), nil, token))
	assert.NotEmpty(t, token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRefreshTokenDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Store(context.Background(), nil, &models.RefreshToken{UserID: "u-1", Token: "tok"})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestStoreRefreshTokenOtherError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnError(errors.New("connection reset"))

	err := repo.Store(context.Background(), nil, &models.RefreshToken{UserID: "u-1", Token: "tok"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateToken)
}

func TestFindByToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	exp := time.Now().Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token = $1")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).AddRow("rt-1", "u-1", "tok", exp, time.Now()))

	rt, err := repo.FindByToken(context.Background(), nil, "tok")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", rt.ID)
	assert.Equal(t, "u-1", rt.UserID)
}

func TestFindByTokenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("FROM refresh_tokens").WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}))

	_, err := repo.FindByToken(context.Background(), nil, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteRefreshTokenIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE id = $1")).
		WithArgs("rt-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), nil, "rt-1"))
}

func TestDeleteAllForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE user_id = $1")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteAllForUser(context.Background(), nil, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
