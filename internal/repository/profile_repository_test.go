package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

func TestFindProfileByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	cols := []string{"id", "user_id", "email", "full_name", "age", "occupation", "country", "city", "monthly_income",
		"monthly_savings", "risk_tolerance", "financial_goals", "budget_categories", "preferred_language", "currency",
		"has_completed_onboarding", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "u-1", "alice@example.com", "Alice", 30, nil, "FR", "Lyon", 3000.0,
			600.0, "low", []byte(`["house"]`), []byte(`{"rent":900}`), "fr", "EUR", true, now, now))

	profile, err := repo.FindByUserID(context.Background(), nil, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Nil(t, profile.Occupation)
	assert.JSONEq(t, `["house"]`, string(profile.FinancialGoals))
	require.NotNil(t, profile.SavingsRate())
	assert.InDelta(t, 20.0, *profile.SavingsRate(), 0.0001)
}

func TestCreateProfileDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("INSERT INTO user_profiles").WillReturnError(&pq.Error{Code: "23505", Constraint: "user_profiles_user_id_key"})

	err := repo.Create(context.Background(), nil, &models.UserProfile{
		UserID:           "u-1",
		FinancialGoals:   types.JSONText(`[]`),
		BudgetCategories: types.JSONText(`{}`),
	})
	assert.ErrorIs(t, err, ErrDuplicateProfile)
}

func TestCreateProfileAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("INSERT INTO user_profiles").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	profile := &models.UserProfile{UserID: "u-1", FinancialGoals: types.JSONText(`[]`), BudgetCategories: types.JSONText(`{}`)}
	require.NoError(t, repo.Create(context.Background(), nil, profile))
	assert.Equal(t, int64(42), profile.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE user_profiles SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.UserProfile{UserID: "u-1", FinancialGoals: types.JSONText(`[]`), BudgetCategories: types.JSONText(`{}`)})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_profiles WHERE user_id = $1")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByUserID(context.Background(), nil, "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
