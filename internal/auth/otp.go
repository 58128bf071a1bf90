// otp.go generates and verifies the 6-digit one-time passcodes emailed for
// signup verification and password reset.
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// OTPTTL is the validity window of an emailed code.
	OTPTTL = 10 * time.Minute
	// OTPMaxAttempts caps verification guesses before all outstanding codes
	// for the email are invalidated.
	OTPMaxAttempts = 5
)

// GenerateOTP returns a crypto-grade 6-digit numeric code in [100000,999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashOTP hashes a code for storage. bcrypt is the right tool here (unlike
// refresh tokens): a 6-digit code has under 20 bits of entropy, so the work
// factor is what makes offline guessing expensive.
func HashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyOTP compares a submitted code against the stored hash.
func VerifyOTP(code, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code)) == nil
}
