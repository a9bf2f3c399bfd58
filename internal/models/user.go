package models

import "time"

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        []byte
	Role                UserRole
	IsActive            bool
	IsVerified          bool
	LastLoginAt         *time.Time
	FailedLoginAttempts int
	LockUntil           *time.Time
	PasswordChangedAt   time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the account is under a lockout at the given time.
// The attempt counter alone never locks an account.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// RefreshToken is one live refresh credential owned by a user. Only the
// SHA-256 hash of the signed token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}
