package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/financial-coach-api/internal/dto"
	"github.com/noah-isme/financial-coach-api/internal/models"
	"github.com/noah-isme/financial-coach-api/internal/repository"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
)

type profileStore interface {
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.UserProfile, error)
	ExistsByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, profile *models.UserProfile) error
	Update(ctx context.Context, exec sqlx.ExtContext, profile *models.UserProfile) error
	DeleteByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) error
}

type profileUserReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
}

// ProfileServiceConfig tunes profile caching.
type ProfileServiceConfig struct {
	CacheTTL time.Duration
}

// ProfileService manages the financial profile of the authenticated user.
type ProfileService struct {
	profiles  profileStore
	users     profileUserReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ProfileServiceConfig
}

// NewProfileService constructs a ProfileService. A nil cache disables caching.
func NewProfileService(profiles profileStore, users profileUserReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg ProfileServiceConfig) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ProfileService{profiles: profiles, users: users, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// Get returns the user's profile, served from cache when possible.
func (s *ProfileService) Get(ctx context.Context, userID string) (*dto.UserProfileResponse, error) {
	key := profileCacheKey(userID)
	var cached dto.UserProfileResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	profile, err := s.profiles.FindByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, internalError(err, "failed to load profile")
	}

	resp, err := toProfileResponse(profile)
	if err != nil {
		return nil, internalError(err, "failed to decode profile")
	}
	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, nil
}

// Exists reports whether the user already created a profile.
func (s *ProfileService) Exists(ctx context.Context, userID string) (bool, error) {
	exists, err := s.profiles.ExistsByUserID(ctx, nil, userID)
	if err != nil {
		return false, internalError(err, "failed to check profile")
	}
	return exists, nil
}

// Create stores a new profile with defaults for language, currency and onboarding.
func (s *ProfileService) Create(ctx context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.users.FindByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUserNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}

	exists, err := s.profiles.ExistsByUserID(ctx, nil, userID)
	if err != nil {
		return nil, internalError(err, "failed to check profile")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "profile already exists")
	}

	language := models.DefaultProfileLanguage
	currency := models.DefaultProfileCurrency
	profile := &models.UserProfile{
		UserID:            userID,
		Email:             user.Email,
		PreferredLanguage: &language,
		Currency:          &currency,
		FinancialGoals:    types.JSONText(`[]`),
		BudgetCategories:  types.JSONText(`{}`),
	}
	if err := applyProfileRequest(profile, req); err != nil {
		return nil, internalError(err, "failed to encode profile")
	}

	if err := s.profiles.Create(ctx, nil, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateProfile) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "profile already exists")
		}
		return nil, internalError(err, "failed to create profile")
	}
	s.logger.Info("profile created", zap.String("user_id", userID))
	s.invalidate(ctx, userID)
	return toProfileResponse(profile)
}

// Update applies the non-nil fields of req to the existing profile.
func (s *ProfileService) Update(ctx context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.profiles.FindByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, internalError(err, "failed to load profile")
	}
	if err := applyProfileRequest(profile, req); err != nil {
		return nil, internalError(err, "failed to encode profile")
	}

	if err := s.profiles.Update(ctx, nil, profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, internalError(err, "failed to update profile")
	}
	s.invalidate(ctx, userID)
	return toProfileResponse(profile)
}

// Delete removes the user's profile.
func (s *ProfileService) Delete(ctx context.Context, userID string) error {
	if err := s.profiles.DeleteByUserID(ctx, nil, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return internalError(err, "failed to delete profile")
	}
	s.logger.Info("profile deleted", zap.String("user_id", userID))
	s.invalidate(ctx, userID)
	return nil
}

func (s *ProfileService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, profileCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate profile cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func profileCacheKey(userID string) string {
	return "profile:" + userID
}

func applyProfileRequest(profile *models.UserProfile, req dto.UserProfileRequest) error {
	if req.FullName != nil {
		profile.FullName = req.FullName
	}
	if req.Age != nil {
		profile.Age = req.Age
	}
	if req.Occupation != nil {
		profile.Occupation = req.Occupation
	}
	if req.Country != nil {
		profile.Country = req.Country
	}
	if req.City != nil {
		profile.City = req.City
	}
	if req.MonthlyIncome != nil {
		profile.MonthlyIncome = req.MonthlyIncome
	}
	if req.MonthlySavings != nil {
		profile.MonthlySavings = req.MonthlySavings
	}
	if req.RiskTolerance != nil {
		profile.RiskTolerance = req.RiskTolerance
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = req.PreferredLanguage
	}
	if req.Currency != nil {
		profile.Currency = req.Currency
	}
	if req.HasCompletedOnboarding != nil {
		profile.HasCompletedOnboarding = *req.HasCompletedOnboarding
	}
	if req.FinancialGoals != nil {
		raw, err := json.Marshal(req.FinancialGoals)
		if err != nil {
			return err
		}
		profile.FinancialGoals = types.JSONText(raw)
	}
	if req.BudgetCategories != nil {
		raw, err := json.Marshal(req.BudgetCategories)
		if err != nil {
			return err
		}
		profile.BudgetCategories = types.JSONText(raw)
	}
	return nil
}

func toProfileResponse(profile *models.UserProfile) (*dto.UserProfileResponse, error) {
	goals := []string{}
	if len(profile.FinancialGoals) > 0 {
		if err := json.Unmarshal(profile.FinancialGoals, &goals); err != nil {
			return nil, err
		}
	}
	budget := map[string]float64{}
	if len(profile.BudgetCategories) > 0 {
		if err := json.Unmarshal(profile.BudgetCategories, &budget); err != nil {
			return nil, err
		}
	}
	return &dto.UserProfileResponse{
		ID:                     profile.ID,
		UserID:                 profile.UserID,
		Email:                  profile.Email,
		FullName:               profile.FullName,
		Age:                    profile.Age,
		Occupation:             profile.Occupation,
		Country:                profile.Country,
		City:                   profile.City,
		MonthlyIncome:          profile.MonthlyIncome,
		MonthlySavings:         profile.MonthlySavings,
		SavingsRate:            profile.SavingsRate(),
		RiskTolerance:          profile.RiskTolerance,
		FinancialGoals:         goals,
		BudgetCategories:       budget,
		PreferredLanguage:      profile.PreferredLanguage,
		Currency:               profile.Currency,
		HasCompletedOnboarding: profile.HasCompletedOnboarding,
		CreatedAt:              profile.CreatedAt,
		UpdatedAt:              profile.UpdatedAt,
	}, nil
}
