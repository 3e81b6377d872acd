package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/financial-coach-api/internal/models"
	"github.com/noah-isme/financial-coach-api/internal/repository"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
)

// Auth event labels used for metrics.
const (
	authEventRegister = "register"
	authEventLogin    = "login"
	authEventRefresh  = "refresh"
	authEventLogout   = "logout"
)

type authUserStore interface {
	ExistsByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (bool, error)
	FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.User, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	AssignRole(ctx context.Context, exec sqlx.ExtContext, userID string, roleID int64) error
	UpdateLastLogin(ctx context.Context, exec sqlx.ExtContext, id string, ts time.Time) error
}

type roleResolver interface {
	FindOrCreate(ctx context.Context, exec sqlx.ExtContext, name models.RoleName) (*models.Role, error)
}

type refreshTokenLedger interface {
	Store(ctx context.Context, exec sqlx.ExtContext, token *models.RefreshToken) error
	FindByToken(ctx context.Context, exec sqlx.ExtContext, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteAllForUser(ctx context.Context, exec sqlx.ExtContext, userID string) (int64, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AuthConfig tunes password hashing.
type AuthConfig struct {
	BcryptCost int
}

// AuthServiceParams groups constructor dependencies.
type AuthServiceParams struct {
	Users       authUserStore
	Roles       roleResolver
	Ledger      refreshTokenLedger
	Audit       auditLogger
	Tx          txProvider
	Tokens      *TokenIssuer
	Credentials CredentialVerifier
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Clock       func() time.Time
	Config      AuthConfig
}

// AuthService coordinates registration, login, refresh and logout. Each
// operation runs as one database transaction.
type AuthService struct {
	users       authUserStore
	roles       roleResolver
	ledger      refreshTokenLedger
	audit       auditLogger
	tx          txProvider
	tokens      *TokenIssuer
	credentials CredentialVerifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	cfg         AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(params AuthServiceParams) *AuthService {
	cfg := params.Config
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:       params.Users,
		roles:       params.Roles,
		ledger:      params.Ledger,
		audit:       params.Audit,
		tx:          params.Tx,
		tokens:      params.Tokens,
		credentials: params.Credentials,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		now:         now,
		cfg:         cfg,
	}
}

// Register creates an account with the default role and opens a session.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}
	s.logger.Info("register attempt", zap.String("email", req.Email))

	var (
		resp *models.AuthResponse
		user *models.User
	)
	err := s.withinTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.users.ExistsByEmail(ctx, tx, req.Email)
		if err != nil {
			return internalError(err, "failed to check email")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already in use")
		}
		if req.Password != req.ConfirmPassword {
			return appErrors.Clone(appErrors.ErrPasswordMismatch, "passwords do not match")
		}

		role, err := s.roles.FindOrCreate(ctx, tx, models.DefaultRole)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrRoleNotFound, "default role unavailable")
			}
			return internalError(err, "failed to resolve default role")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
		if err != nil {
			return internalError(err, "failed to hash password")
		}

		user = &models.User{
			Email:         req.Email,
			PasswordHash:  string(hash),
			Enabled:       true,
			EmailVerified: false,
		}
		if err := s.users.Create(ctx, tx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already in use")
			}
			return internalError(err, "failed to create user")
		}
		if err := s.users.AssignRole(ctx, tx, user.ID, role.ID); err != nil {
			return internalError(err, "failed to assign role")
		}
		user.Roles = []models.RoleName{role.Name}

		resp, err = s.issueSession(ctx, tx, user)
		return err
	})
	if err != nil {
		s.fail(authEventRegister, req.Email, err)
		return nil, err
	}

	s.metrics.RecordAuthEvent(authEventRegister, OutcomeSuccess)
	s.record(ctx, models.AuditActionRegister, user.ID, req.IP, req.UserAgent, map[string]interface{}{"email": user.Email})
	return resp, nil
}

// Login authenticates the credentials, stamps last-login and opens a session.
// Unknown users and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	s.logger.Info("login attempt", zap.String("email", req.Email))

	ok, err := s.credentials.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		err = internalError(err, "failed to verify credentials")
		s.fail(authEventLogin, req.Email, err)
		return nil, err
	}
	if !ok {
		err = invalidCredentials()
		s.fail(authEventLogin, req.Email, err)
		return nil, err
	}

	var (
		resp *models.AuthResponse
		user *models.User
	)
	err = s.withinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		user, err = s.users.FindByEmail(ctx, tx, req.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrUserNotFound, "user not found")
			}
			return internalError(err, "failed to load user")
		}

		loginAt := s.now().UTC()
		if err := s.users.UpdateLastLogin(ctx, tx, user.ID, loginAt); err != nil {
			return internalError(err, "failed to update last login")
		}
		user.LastLogin = &loginAt

		resp, err = s.issueSession(ctx, tx, user)
		return err
	})
	if err != nil {
		s.fail(authEventLogin, req.Email, err)
		return nil, err
	}

	s.metrics.RecordAuthEvent(authEventLogin, OutcomeSuccess)
	s.record(ctx, models.AuditActionLogin, user.ID, req.IP, req.UserAgent, map[string]interface{}{"status": "success"})
	return resp, nil
}

// Refresh exchanges a ledger-tracked refresh token for a new access token.
// The refresh token itself is returned unchanged. An expired entry is deleted
// before ExpiredToken is reported.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.AuthResponse, error) {
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	var (
		resp    *models.AuthResponse
		user    *models.User
		expired bool
	)
	err := s.withinTx(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.ledger.FindByToken(ctx, tx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidToken, "invalid refresh token")
			}
			return internalError(err, "failed to load refresh token")
		}

		if entry.IsExpired(s.now()) {
			if err := s.ledger.Delete(ctx, tx, entry.ID); err != nil {
				return internalError(err, "failed to delete expired refresh token")
			}
			expired = true
			return nil
		}

		user, err = s.users.FindByID(ctx, tx, entry.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrUserNotFound, "user not found")
			}
			return internalError(err, "failed to load user")
		}

		roles := user.RoleNames()
		access, err := s.tokens.IssueAccessToken(user.Email, user.ID, roles)
		if err != nil {
			return internalError(err, "failed to create access token")
		}
		s.metrics.RecordTokenIssued("access")
		resp = s.sessionResponse(user, access, entry.Token, roles)
		return nil
	})
	if err == nil && expired {
		err = appErrors.Clone(appErrors.ErrExpiredToken, "refresh token expired")
	}
	if err != nil {
		s.fail(authEventRefresh, "", err)
		return nil, err
	}

	s.metrics.RecordAuthEvent(authEventRefresh, OutcomeSuccess)
	s.record(ctx, models.AuditActionRefresh, user.ID, req.IP, req.UserAgent, nil)
	return resp, nil
}

// Logout deletes the ledger entry for the refresh token. Unknown tokens are
// not an error.
func (s *AuthService) Logout(ctx context.Context, req models.RefreshTokenRequest) error {
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		s.metrics.RecordAuthEvent(authEventLogout, OutcomeSuccess)
		return nil
	}

	var owner string
	err := s.withinTx(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.ledger.FindByToken(ctx, tx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return internalError(err, "failed to load refresh token")
		}
		if err := s.ledger.Delete(ctx, tx, entry.ID); err != nil {
			return internalError(err, "failed to delete refresh token")
		}
		owner = entry.UserID
		return nil
	})
	if err != nil {
		s.fail(authEventLogout, "", err)
		return err
	}

	s.metrics.RecordAuthEvent(authEventLogout, OutcomeSuccess)
	if owner != "" {
		s.record(ctx, models.AuditActionLogout, owner, req.IP, req.UserAgent, nil)
	}
	return nil
}

// RevokeUserSessions deletes every refresh token of a user and returns the count.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID, actorID, ip, userAgent string) (int64, error) {
	var removed int64
	err := s.withinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.users.FindByID(ctx, tx, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrUserNotFound, "user not found")
			}
			return internalError(err, "failed to load user")
		}
		var err error
		removed, err = s.ledger.DeleteAllForUser(ctx, tx, userID)
		if err != nil {
			return internalError(err, "failed to revoke sessions")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("sessions revoked", zap.String("user_id", userID), zap.String("actor_id", actorID), zap.Int64("count", removed))
	s.record(ctx, models.AuditActionRevokeAll, actorID, ip, userAgent, map[string]interface{}{
		"target_user_id": userID,
		"revoked":        removed,
	})
	return removed, nil
}

// CurrentUser returns the stored identity of an authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.CurrentUser, error) {
	user, err := s.users.FindByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUserNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	return &models.CurrentUser{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}, nil
}

func (s *AuthService) issueSession(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.AuthResponse, error) {
	roles := user.RoleNames()
	access, err := s.tokens.IssueAccessToken(user.Email, user.ID, roles)
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}
	refresh, err := s.tokens.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, internalError(err, "failed to create refresh token")
	}

	entry := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().UTC().Add(s.tokens.RefreshTokenTTL()),
	}
	if err := s.ledger.Store(ctx, tx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateToken) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateToken, "refresh token already issued")
		}
		return nil, internalError(err, "failed to persist refresh token")
	}
	s.metrics.RecordTokenIssued("access")
	s.metrics.RecordTokenIssued("refresh")

	return s.sessionResponse(user, access, refresh, roles), nil
}

func (s *AuthService) sessionResponse(user *models.User, access, refresh string, roles []string) *models.AuthResponse {
	return &models.AuthResponse{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    models.TokenTypeBearer,
		ExpiresIn:    s.tokens.AccessTokenExpiresIn(),
		Roles:        roles,
	}
}

func (s *AuthService) withinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return internalError(err, "failed to commit transaction")
	}
	return nil
}

func (s *AuthService) fail(event, email string, err error) {
	s.metrics.RecordAuthEvent(event, OutcomeFailure)
	fields := []zap.Field{zap.String("event", event), zap.Error(err)}
	if email != "" {
		fields = append(fields, zap.String("email", email))
	}
	s.logger.Warn("auth operation failed", fields...)
}

func (s *AuthService) record(ctx context.Context, action, userID, ip, userAgent string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if values != nil {
		payload, _ = json.Marshal(values)
	}
	id := userID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &id,
		Action:     action,
		Resource:   "auth",
		ResourceID: &id,
		NewValues:  payload,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func invalidCredentials() error {
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "email or password incorrect")
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
