// request_repository.go implements RequestRepository for join requests.
// Approval is the system's main state transition: in one transaction the
// PENDING row becomes APPROVED, a MEMBER role row is created, and — when a
// valid same-society team was selected — a group membership row. A request
// that already left PENDING can never transition again.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// RequestRepository handles join-request database operations
type RequestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const joinRequestColumns = `id, user_id, society_id, form_id, responses, selected_group_id,
	status, rejection_reason, reviewed_by, reviewed_at, created_at`

func scanJoinRequest(row *sql.Row) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	err := row.Scan(
		&req.ID, &req.UserID, &req.SocietyID, &req.FormID, &req.Responses, &req.SelectedGroupID,
		&req.Status, &req.RejectionReason, &req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Create persists a new PENDING join request. The partial unique index on
// (user, society) WHERE status='PENDING' turns a duplicate submission into
// ErrPendingExists even under concurrent submits.
func (r *RequestRepository) Create(ctx context.Context, req *models.JoinRequest) error {
	// The caller may pre-assign the id; attachment keys reference it before
	// the row exists.
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RequestPending
	req.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO join_requests (id, user_id, society_id, form_id, responses, selected_group_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.UserID, req.SocietyID, req.FormID, req.Responses, req.SelectedGroupID,
		req.Status, req.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrPendingExists
	}
	return err
}

// GetByID retrieves a join request. Returns (nil, nil) when absent.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`
	return scanJoinRequest(r.db.QueryRowContext(ctx, query, id))
}

// HasPending reports whether the user already has a PENDING request for the
// society.
func (r *RequestRepository) HasPending(ctx context.Context, userID, societyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM join_requests WHERE user_id = $1 AND society_id = $2 AND status = $3)`,
		userID, societyID, models.RequestPending,
	).Scan(&exists)
	return exists, err
}

// ListBySociety returns a society's join requests filtered by status ("" for
// all), newest first.
func (r *RequestRepository) ListBySociety(ctx context.Context, societyID string, status models.RequestStatus, limit, offset int) ([]*models.JoinRequest, error) {
	query := `
		SELECT ` + joinRequestColumns + `
		FROM join_requests
		WHERE society_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, societyID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*models.JoinRequest
	for rows.Next() {
		req := &models.JoinRequest{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.SocietyID, &req.FormID, &req.Responses, &req.SelectedGroupID,
			&req.Status, &req.RejectionReason, &req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// ListByUser returns the user's own join requests across societies.
func (r *RequestRepository) ListByUser(ctx context.Context, userID string) ([]*models.JoinRequest, error) {
	query := `
		SELECT ` + joinRequestColumns + `
		FROM join_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*models.JoinRequest
	for rows.Next() {
		req := &models.JoinRequest{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.SocietyID, &req.FormID, &req.Responses, &req.SelectedGroupID,
			&req.Status, &req.RejectionReason, &req.ReviewedBy, &req.ReviewedAt, &req.CreatedAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Approve transitions a PENDING request to APPROVED. In the same transaction
// it creates the MEMBER role row and, when groupID is non-nil and resolves to
// a group of the request's society, a group_members row (a stale or foreign
// team id is silently skipped, not an error). Returns the updated request.
func (r *RequestRepository) Approve(ctx context.Context, requestID, reviewerID string, groupID *string) (*models.JoinRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req := &models.JoinRequest{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, society_id, status, selected_group_id FROM join_requests WHERE id = $1 FOR UPDATE`,
		requestID,
	).Scan(&req.ID, &req.UserID, &req.SocietyID, &req.Status, &req.SelectedGroupID)
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
	_, err = tx.ExecContext(ctx,
		`UPDATE join_requests SET status = $1, reviewed_by = $2, reviewed_at = $3 WHERE id = $4`,
		models.RequestApproved, reviewerID, now, requestID,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO society_user_roles (id, user_id, society_id, role, assigned_by, assigned_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), req.UserID, req.SocietyID, models.RoleMember, reviewerID, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	// Reviewer override wins over the applicant's selection.
	target := req.SelectedGroupID
	if groupID != nil {
		target = groupID
	}
	if target != nil {
		var gid string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM groups WHERE id = $1 AND society_id = $2`, *target, req.SocietyID,
		).Scan(&gid)
		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO group_members (group_id, user_id, society_id, added_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (group_id, user_id) DO NOTHING`,
				gid, req.UserID, req.SocietyID, now,
			); err != nil {
				return nil, err
			}
		case sql.ErrNoRows:
			// Team no longer exists or belongs elsewhere: approve without it.
		default:
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = models.RequestApproved
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	return req, nil
}

// Reject transitions a PENDING request to REJECTED with a reason. No
// membership side effects. Returns the updated request.
func (r *RequestRepository) Reject(ctx context.Context, requestID, reviewerID, reason string) (*models.JoinRequest, error) {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE join_requests SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $5 AND status = $6`,
		models.RequestRejected, reason, reviewerID, now, requestID, models.RequestPending,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyProcessed
	}
	return r.GetByID(ctx, requestID)
}
