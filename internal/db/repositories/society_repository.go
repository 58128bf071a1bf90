// society_repository.go implements SocietyRepository for societies and the
// founding requests that create them. Approving a founding request creates
// the society and its first PRESIDENT role row in one transaction.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/societyhub/societyhub/internal/db/models"
)

// SocietyRepository handles society and society-request database operations
type SocietyRepository struct {
	db *sql.DB
}

// NewSocietyRepository creates a new SocietyRepository
func NewSocietyRepository(db *sql.DB) *SocietyRepository {
	return &SocietyRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique-index violation.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

const societyColumns = `id, name, description, status, created_by, created_at, updated_at`

func scanSociety(row *sql.Row) (*models.Society, error) {
	s := &models.Society{}
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a society by ID. Returns (nil, nil) when absent.
func (r *SocietyRepository) GetByID(ctx context.Context, id string) (*models.Society, error) {
	query := `SELECT ` + societyColumns + ` FROM societies WHERE id = $1`
	return scanSociety(r.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a society by its unique name.
func (r *SocietyRepository) GetByName(ctx context.Context, name string) (*models.Society, error) {
	query := `SELECT ` + societyColumns + ` FROM societies WHERE name = $1`
	return scanSociety(r.db.QueryRowContext(ctx, query, name))
}

// List returns non-deleted societies, newest first.
func (r *SocietyRepository) List(ctx context.Context, limit, offset int) ([]*models.Society, error) {
	query := `
		SELECT ` + societyColumns + `
		FROM societies
		WHERE status <> $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.SocietyDeleted, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var societies []*models.Society
	for rows.Next() {
		s := &models.Society{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		societies = append(societies, s)
	}
	return societies, rows.Err()
}

// Count returns the number of non-deleted societies.
func (r *SocietyRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM societies WHERE status <> $1`, models.SocietyDeleted,
	).Scan(&count)
	return count, err
}

// Update changes the mutable fields of a society.
func (r *SocietyRepository) Update(ctx context.Context, id, name, description string) error {
	query := `UPDATE societies SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, name, description, time.Now(), id)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// SetStatus drives the society lifecycle: ACTIVE ↔ SUSPENDED, and the
// terminal soft delete to DELETED. Rows are never removed.
func (r *SocietyRepository) SetStatus(ctx context.Context, id string, status models.SocietyStatus) error {
	query := `UPDATE societies SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// --- founding requests ---

const societyRequestColumns = `id, name, description, requested_by, status,
	rejection_reason, reviewed_by, reviewed_at, created_at`

// CreateRequest records a founding request in PENDING state.
func (r *SocietyRepository) CreateRequest(ctx context.Context, req *models.SocietyRequest) error {
	req.ID = uuid.New().String()
	req.Status = models.RequestPending
	req.CreatedAt = time.Now()

	query := `
		INSERT INTO society_requests (id, name, description, requested_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.Name, req.Description, req.RequestedBy, req.Status, req.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrPendingExists
	}
	return err
}

// GetRequestByID retrieves a founding request. Returns (nil, nil) when absent.
func (r *SocietyRepository) GetRequestByID(ctx context.Context, id string) (*models.SocietyRequest, error) {
	query := `SELECT ` + societyRequestColumns + ` FROM society_requests WHERE id = $1`
	req := &models.SocietyRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.Name, &req.Description, &req.RequestedBy, &req.Status,
		&req.RejectionReason, &req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequests returns founding requests filtered by status ("" for all).
func (r *SocietyRepository) ListRequests(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.SocietyRequest, error) {
	query := `
		SELECT ` + societyRequestColumns + `
		FROM society_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*models.SocietyRequest
	for rows.Next() {
		req := &models.SocietyRequest{}
		if err := rows.Scan(
			&req.ID, &req.Name, &req.Description, &req.RequestedBy, &req.Status,
			&req.RejectionReason, &req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// ApproveRequest approves a PENDING founding request: in one transaction it
// marks the request APPROVED, creates the society, and grants the requester
// the PRESIDENT role. Returns the new society.
func (r *SocietyRepository) ApproveRequest(ctx context.Context, requestID, reviewerID string) (*models.Society, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the request row so two reviewers cannot both resolve it.
	var req models.SocietyRequest
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, description, requested_by, status FROM society_requests WHERE id = $1 FOR UPDATE`,
		requestID,
	).Scan(&req.ID, &req.Name, &req.Description, &req.RequestedBy, &req.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if req.Status.Resolved() {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	society := &models.Society{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      models.SocietyActive,
		CreatedBy:   req.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO societies (id, name, description, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		society.ID, society.Name, society.Description, society.Status, society.CreatedBy, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO society_user_roles (id, user_id, society_id, role, assigned_by, assigned_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), req.RequestedBy, society.ID, models.RolePresident, reviewerID, now,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE society_requests SET status = $1, reviewed_by = $2, reviewed_at = $3 WHERE id = $4`,
		models.RequestApproved, reviewerID, now, requestID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return society, nil
}

// RejectRequest rejects a PENDING founding request with a reason.
func (r *SocietyRepository) RejectRequest(ctx context.Context, requestID, reviewerID, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE society_requests SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $5 AND status = $6`,
		models.RequestRejected, reason, reviewerID, time.Now(), requestID, models.RequestPending,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}
