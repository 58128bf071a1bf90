// refresh.go generates and hashes opaque refresh tokens. The raw token is
// returned to the client once; only its SHA-256 hash is persisted, so a
// database leak does not leak usable credentials.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// RefreshTokenTTL is the lifetime of a refresh token. Each refresh rotates
// the token, so an active session never presents the same credential twice.
const RefreshTokenTTL = 30 * 24 * time.Hour

// RefreshToken pairs the raw client-facing token with its expiry.
type RefreshToken struct {
	Raw       string
	ExpiresAt time.Time
}

// NewRefreshToken generates a 32-byte opaque refresh token.
func NewRefreshToken(ttl time.Duration) (*RefreshToken, error) {
	if ttl == 0 {
		ttl = RefreshTokenTTL
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &RefreshToken{
		Raw:       base64.RawURLEncoding.EncodeToString(buf),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashRefreshToken returns the hex SHA-256 digest stored in place of the raw
// token. SHA-256 (not bcrypt) is deliberate: the input is already 256 bits of
// entropy, so key stretching adds latency without adding security.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
