// token_repository.go implements TokenRepository for rotating refresh tokens.
// Only SHA-256 hashes are stored; rotation revokes the presented token and
// links its replacement so reuse of a rotated credential is detectable.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// TokenRepository handles refresh-token database operations
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Store persists a new refresh-token hash.
func (r *TokenRepository) Store(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), userID, tokenHash, expiresAt, time.Now(),
	)
	return err
}

// Rotate validates the presented token hash and, in one transaction, revokes
// it and stores its replacement. Returns the owning user id.
// A revoked, expired or unknown token yields ErrTokenInvalid.
func (r *TokenRepository) Rotate(ctx context.Context, oldHash, newHash string, newExpiry time.Time) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var (
		userID    string
		expiresAt time.Time
		revoked   bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`,
		oldHash,
	).Scan(&userID, &expiresAt, &revoked)
	if err == sql.ErrNoRows {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	if revoked || time.Now().After(expiresAt) {
		return "", ErrTokenInvalid
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1, replaced_by_hash = $2
		 WHERE token_hash = $3`,
		now, newHash, oldHash,
	)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), userID, newHash, newExpiry, now,
	)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke marks a single token revoked (logout).
func (r *TokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1
		 WHERE token_hash = $2 AND NOT revoked`,
		time.Now(), tokenHash,
	)
	return err
}

// RevokeAllForUser revokes every outstanding token for the user. Called on
// password reset so stolen sessions die with the old password.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1
		 WHERE user_id = $2 AND NOT revoked`,
		time.Now(), userID,
	)
	return err
}

// GetByHash retrieves a token row by hash. Returns (nil, nil) when absent.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, replaced_by_hash, created_at, revoked_at
		 FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.ReplacedByHash, &t.CreatedAt, &t.RevokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteExpired removes tokens past expiry by more than the retention window.
// Returns the number of rows removed.
func (r *TokenRepository) DeleteExpired(ctx context.Context, retain time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
		time.Now().Add(-retain),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
