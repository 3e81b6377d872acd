package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeBearer is the token type label returned with every session.
const TokenTypeBearer = "Bearer"

// RegisterRequest holds the payload for account creation.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	IP              string `json:"-"`
	UserAgent       string `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshTokenRequest carries a refresh token for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// AuthResponse is the session payload returned by register, login and refresh.
type AuthResponse struct {
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	Roles        []string `json:"roles"`
}

// CurrentUser describes the bearer of an access token.
type CurrentUser struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// JWTClaims is the access token payload. Subject carries the email.
type JWTClaims struct {
	UserID string   `json:"userId,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims grant the role.
func (c *JWTClaims) HasRole(role RoleName) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
