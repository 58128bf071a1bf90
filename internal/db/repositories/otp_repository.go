// otp_repository.go implements OTPRepository for emailed one-time passcodes.
// Verification always targets the most recent unverified code of the right
// type; the attempt counter caps guessing at five before everything for the
// email is invalidated.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// OTPRepository handles OTP database operations
type OTPRepository struct {
	db *sql.DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create stores a freshly issued code hash, superseding any outstanding codes
// of the same type for the email (they are deleted, not kept around to answer
// verification attempts).
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTP) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM otps WHERE email = $1 AND type = $2 AND NOT verified`,
		otp.Email, otp.Type,
	)
	if err != nil {
		return err
	}

	otp.ID = uuid.New().String()
	otp.CreatedAt = time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO otps (id, email, otp_hash, type, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		otp.ID, otp.Email, otp.OTPHash, otp.Type, otp.ExpiresAt, otp.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetLatest returns the most recent unverified code of the type for the
// email, or (nil, nil).
func (r *OTPRepository) GetLatest(ctx context.Context, email string, otpType models.OTPType) (*models.OTP, error) {
	otp := &models.OTP{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, otp_hash, type, expires_at, verified, attempts, created_at
		 FROM otps
		 WHERE email = $1 AND type = $2 AND NOT verified
		 ORDER BY created_at DESC
		 LIMIT 1`,
		email, otpType,
	).Scan(&otp.ID, &otp.Email, &otp.OTPHash, &otp.Type, &otp.ExpiresAt, &otp.Verified, &otp.Attempts, &otp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// IncrementAttempts bumps the guess counter and returns the new value.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otps SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id,
	).Scan(&attempts)
	return attempts, err
}

// MarkVerified flags a code as consumed.
func (r *OTPRepository) MarkVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otps SET verified = true WHERE id = $1`, id)
	return err
}

// InvalidateAll deletes every outstanding code for the email, forcing a fresh
// request. Used when the attempt ceiling is exceeded.
func (r *OTPRepository) InvalidateAll(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = $1 AND NOT verified`, email)
	return err
}

// DeleteExpired removes codes past their TTL. Returns rows removed.
func (r *OTPRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
