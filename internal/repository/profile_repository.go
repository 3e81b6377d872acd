package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

const profileColumns = `p.id, p.user_id, u.email, p.full_name, p.age, p.occupation, p.country, p.city,
	p.monthly_income, p.monthly_savings, p.risk_tolerance, p.financial_goals, p.budget_categories,
	p.preferred_language, p.currency, p.has_completed_onboarding, p.created_at, p.updated_at`

// ProfileRepository persists user_profiles rows.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns the profile of a user joined with the account email, or sql.ErrNoRows.
func (r *ProfileRepository) FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`
	var profile models.UserProfile
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// ExistsByUserID reports whether the user has a profile.
func (r *ProfileRepository) ExistsByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE user_id = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &exists, query, userID); err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	return exists, nil
}

// Create inserts a profile; a second profile for the same user yields ErrDuplicateProfile.
func (r *ProfileRepository) Create(ctx context.Context, exec sqlx.ExtContext, profile *models.UserProfile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO user_profiles (user_id, full_name, age, occupation, country, city, monthly_income, monthly_savings,
	risk_tolerance, financial_goals, budget_categories, preferred_language, currency, has_completed_onboarding, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	err := sqlx.GetContext(ctx, pick(r.db, exec), &profile.ID, query,
		profile.UserID, profile.FullName, profile.Age, profile.Occupation, profile.Country, profile.City,
		profile.MonthlyIncome, profile.MonthlySavings, profile.RiskTolerance, profile.FinancialGoals,
		profile.BudgetCategories, profile.PreferredLanguage, profile.Currency, profile.HasCompletedOnboarding,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProfile
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a profile. Returns sql.ErrNoRows when absent.
func (r *ProfileRepository) Update(ctx context.Context, exec sqlx.ExtContext, profile *models.UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE user_profiles SET full_name = $2, age = $3, occupation = $4, country = $5, city = $6,
	monthly_income = $7, monthly_savings = $8, risk_tolerance = $9, financial_goals = $10, budget_categories = $11,
	preferred_language = $12, currency = $13, has_completed_onboarding = $14, updated_at = $15
	WHERE user_id = $1`
	result, err := pick(r.db, exec).ExecContext(ctx, query,
		profile.UserID, profile.FullName, profile.Age, profile.Occupation, profile.Country, profile.City,
		profile.MonthlyIncome, profile.MonthlySavings, profile.RiskTolerance, profile.FinancialGoals,
		profile.BudgetCategories, profile.PreferredLanguage, profile.Currency, profile.HasCompletedOnboarding,
		profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(result)
}

// DeleteByUserID removes the profile of a user. Returns sql.ErrNoRows when absent.
func (r *ProfileRepository) DeleteByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) error {
	const query = `DELETE FROM user_profiles WHERE user_id = $1`
	result, err := pick(r.db, exec).ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
