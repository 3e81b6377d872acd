package dto

import "time"

// UserProfileRequest is used for both create and partial update; nil fields
// are left untouched on update.
type UserProfileRequest struct {
	FullName               *string            `json:"fullName" validate:"omitempty,max=255"`
	Age                    *int               `json:"age" validate:"omitempty,min=0,max=150"`
	Occupation             *string            `json:"occupation" validate:"omitempty,max=255"`
	Country                *string            `json:"country" validate:"omitempty,max=128"`
	City                   *string            `json:"city" validate:"omitempty,max=128"`
	MonthlyIncome          *float64           `json:"monthlyIncome" validate:"omitempty,min=0"`
	MonthlySavings         *float64           `json:"monthlySavings"`
	RiskTolerance          *string            `json:"riskTolerance" validate:"omitempty,oneof=low medium high"`
	FinancialGoals         []string           `json:"financialGoals" validate:"omitempty,dive,max=255"`
	BudgetCategories       map[string]float64 `json:"budgetCategories"`
	PreferredLanguage      *string            `json:"preferredLanguage" validate:"omitempty,max=8"`
	Currency               *string            `json:"currency" validate:"omitempty,len=3"`
	HasCompletedOnboarding *bool              `json:"hasCompletedOnboarding"`
}

// UserProfileResponse is the API view of a profile.
type UserProfileResponse struct {
	ID                     int64              `json:"id"`
	UserID                 string             `json:"userId"`
	Email                  string             `json:"email"`
	FullName               *string            `json:"fullName"`
	Age                    *int               `json:"age"`
	Occupation             *string            `json:"occupation"`
	Country                *string            `json:"country"`
	City                   *string            `json:"city"`
	MonthlyIncome          *float64           `json:"monthlyIncome"`
	MonthlySavings         *float64           `json:"monthlySavings"`
	SavingsRate            *float64           `json:"savingsRate"`
	RiskTolerance          *string            `json:"riskTolerance"`
	FinancialGoals         []string           `json:"financialGoals"`
	BudgetCategories       map[string]float64 `json:"budgetCategories"`
	PreferredLanguage      *string            `json:"preferredLanguage"`
	Currency               *string            `json:"currency"`
	HasCompletedOnboarding bool               `json:"hasCompletedOnboarding"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// ProfileExistsResponse answers GET /api/profile/exists.
type ProfileExistsResponse struct {
	Exists bool `json:"exists"`
}
