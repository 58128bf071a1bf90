// user_repository.go implements UserRepository, covering account CRUD,
// email-verification state, and the login-lockout counters.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, status, email_verified,
	is_super_admin, failed_login_attempts, locked_until, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.EmailVerified,
		&user.IsSuperAdmin,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.Status == "" {
		user.Status = models.UserInactive
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, status, email_verified, is_super_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.EmailVerified,
		user.IsSuperAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return err
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// DeleteUnverifiedByEmail removes a prior account for the email that never
// completed OTP verification, so a fresh signup can reuse the address.
func (r *UserRepository) DeleteUnverifiedByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM users WHERE email = $1 AND email_verified = false`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

// MarkEmailVerified flips email_verified and activates the account.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	query := `
		UPDATE users SET email_verified = true, status = $1, updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.UserActive, time.Now(), userID)
	return err
}

// UpdateProfile updates the mutable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name string) error {
	query := `UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, name, time.Now(), userID)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), userID)
	return err
}

// RecordLoginFailure increments the consecutive-failure counter and, at the
// threshold, stamps the lockout window. Returns the new counter value.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockout time.Duration) (int, error) {
	query := `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE locked_until END,
			updated_at = $3
		WHERE id = $4
		RETURNING failed_login_attempts
	`
	var attempts int
	err := r.db.QueryRowContext(ctx, query,
		threshold, time.Now().Add(lockout), time.Now(), userID,
	).Scan(&attempts)
	return attempts, err
}

// ResetLoginFailures clears the failure counter and lockout after a
// successful login.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, userID string) error {
	query := `
		UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, time.Now(), userID)
	return err
}

// SetStatus updates the account lifecycle status (admin suspend/activate).
func (r *UserRepository) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	query := `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), userID)
	return err
}

// ListUsers returns a page of users for the admin surface.
func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Status,
			&user.EmailVerified,
			&user.IsSuperAdmin,
			&user.FailedLoginAttempts,
			&user.LockedUntil,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of accounts.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
