package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/financial-coach-api/internal/models"
)

// CredentialVerifier checks an email/password pair. Unknown users, disabled
// accounts and wrong passwords all report false.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (bool, error)
}

type credentialLookup interface {
	FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.User, error)
}

// PasswordAuthenticator verifies credentials against bcrypt hashes in the credential store.
type PasswordAuthenticator struct {
	users credentialLookup
}

// NewPasswordAuthenticator constructs a PasswordAuthenticator.
func NewPasswordAuthenticator(users credentialLookup) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users}
}

// VerifyCredentials implements CredentialVerifier. Only store failures are returned as errors.
func (a *PasswordAuthenticator) VerifyCredentials(ctx context.Context, email, password string) (bool, error) {
	user, err := a.users.FindByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if !user.Enabled {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}
