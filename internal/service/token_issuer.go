package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

// Token verification failures.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// TokenConfig carries the signing key and token lifetimes.
type TokenConfig struct {
	SigningKey      []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

// TokenIssuer signs and verifies HS256 access and refresh tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. A nil clock defaults to time.Now.
func NewTokenIssuer(cfg TokenConfig, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{cfg: cfg, now: now}
}

// IssueAccessToken signs a short-lived token whose subject is the email and
// whose claims carry the user id and roles. iat has one-second resolution, so
// tokens minted within the same second share it and differ only by jti.
func (i *TokenIssuer) IssueAccessToken(email, userID string, roles []string) (string, error) {
	issuedAt := i.now().UTC()
	claims := &models.JWTClaims{
		UserID:           userID,
		Roles:            roles,
		RegisteredClaims: i.registered(email, issuedAt, i.cfg.AccessTokenTTL),
	}
	return i.sign(claims)
}

// IssueRefreshToken signs a long-lived token carrying only registered claims.
func (i *TokenIssuer) IssueRefreshToken(email string) (string, error) {
	issuedAt := i.now().UTC()
	claims := i.registered(email, issuedAt, i.cfg.RefreshTokenTTL)
	return i.sign(&claims)
}

// Verify checks the signature and decodes the claims. Expiry is not checked.
func (i *TokenIssuer) Verify(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.cfg.SigningKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrMalformedToken
		}
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

// IsValid reports whether the token is correctly signed, belongs to the
// expected subject and has not expired.
func (i *TokenIssuer) IsValid(token, expectedSubject string) bool {
	claims, err := i.Verify(token)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject && !i.expired(claims)
}

// ParseAccessToken verifies an access token for request authentication.
// Refresh tokens carry no user id and are rejected.
func (i *TokenIssuer) ParseAccessToken(token string) (*models.JWTClaims, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	if i.expired(claims) {
		return nil, jwt.ErrTokenExpired
	}
	return claims, nil
}

// AccessTokenExpiresIn returns the access token lifetime in whole seconds.
func (i *TokenIssuer) AccessTokenExpiresIn() int64 {
	return i.cfg.AccessTokenTTL.Milliseconds() / 1000
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.cfg.RefreshTokenTTL
}

func (i *TokenIssuer) expired(claims *models.JWTClaims) bool {
	return claims.ExpiresAt == nil || !i.now().Before(claims.ExpiresAt.Time)
}

func (i *TokenIssuer) registered(subject string, issuedAt time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
}

func (i *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
}
