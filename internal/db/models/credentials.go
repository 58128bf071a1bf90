// credentials.go defines the persisted session and verification credentials:
// rotating refresh tokens and hashed one-time passcodes.
package models

import "time"

// RefreshToken is a single-use session credential. Only the SHA-256 hash of
// the opaque token is stored. Rotation links the replacement via
// ReplacedByHash so reuse of a rotated token is detectable.
type RefreshToken struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	TokenHash      string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Revoked        bool       `json:"revoked"`
	ReplacedByHash *string    `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// OTP is a hashed one-time passcode emailed for signup verification or
// password reset. Attempts caps brute-forcing at five guesses.
type OTP struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	OTPHash   string    `json:"-"`
	Type      OTPType   `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its TTL.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
