// user.go defines the User model for SocietyHub accounts, including the
// email-verification and login-lockout bookkeeping columns.
package models

import "time"

// User represents an account. Accounts are never hard-deleted; suspension and
// soft states live in Status.
type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Status              UserStatus `json:"status"`
	EmailVerified       bool       `json:"email_verified"`
	IsSuperAdmin        bool       `json:"is_super_admin"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Locked reports whether the account is inside a login-lockout window.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
