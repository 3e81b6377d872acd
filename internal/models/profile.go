package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Risk tolerance levels accepted on a profile.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Profile defaults applied on creation.
const (
	DefaultProfileLanguage = "fr"
	DefaultProfileCurrency = "EUR"
)

// UserProfile is the per-user financial profile. Goals and budget categories
// are stored as JSONB.
type UserProfile struct {
	ID                     int64          `db:"id" json:"id"`
	UserID                 string         `db:"user_id" json:"user_id"`
	Email                  string         `db:"email" json:"email"`
	FullName               *string        `db:"full_name" json:"full_name,omitempty"`
	Age                    *int           `db:"age" json:"age,omitempty"`
	Occupation             *string        `db:"occupation" json:"occupation,omitempty"`
	Country                *string        `db:"country" json:"country,omitempty"`
	City                   *string        `db:"city" json:"city,omitempty"`
	MonthlyIncome          *float64       `db:"monthly_income" json:"monthly_income,omitempty"`
	MonthlySavings         *float64       `db:"monthly_savings" json:"monthly_savings,omitempty"`
	RiskTolerance          *string        `db:"risk_tolerance" json:"risk_tolerance,omitempty"`
	FinancialGoals         types.JSONText `db:"financial_goals" json:"financial_goals"`
	BudgetCategories       types.JSONText `db:"budget_categories" json:"budget_categories"`
	PreferredLanguage      *string        `db:"preferred_language" json:"preferred_language,omitempty"`
	Currency               *string        `db:"currency" json:"currency,omitempty"`
	HasCompletedOnboarding bool           `db:"has_completed_onboarding" json:"has_completed_onboarding"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

// SavingsRate returns savings as a percentage of income, or nil when income
// is unknown or not positive.
func (p *UserProfile) SavingsRate() *float64 {
	if p.MonthlyIncome == nil || p.MonthlySavings == nil || *p.MonthlyIncome <= 0 {
		return nil
	}
	rate := *p.MonthlySavings / *p.MonthlyIncome * 100
	return &rate
}
