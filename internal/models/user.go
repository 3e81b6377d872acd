package models

import "time"

// RoleName enumerates the roles a user can hold.
type RoleName string

const (
	RoleUser  RoleName = "USER"
	RoleAdmin RoleName = "ADMIN"
)

// DefaultRole is granted to every newly registered account.
const DefaultRole = RoleUser

// Role is a globally shared role row.
type Role struct {
	ID   int64    `db:"id" json:"id"`
	Name RoleName `db:"name" json:"name"`
}

// User represents an account stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Enabled       bool       `db:"enabled" json:"enabled"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	Roles []RoleName `db:"-" json:"roles"`
}

// RoleNames returns the user's roles as plain strings.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r))
	}
	return names
}

// HasRole reports whether the user holds the role.
func (u *User) HasRole(role RoleName) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
