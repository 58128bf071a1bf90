// audit_repository.go implements AuditRepository, providing database queries
// for writing and retrieving audit log entries with support for filtered
// queries across users and resources. Built on sqlx for its struct scanning.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/societyhub/societyhub/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// auditRow mirrors the audit_logs columns for sqlx struct scanning.
type auditRow struct {
	ID           string    `db:"id"`
	UserID       *string   `db:"user_id"`
	Action       string    `db:"action"`
	ResourceType string    `db:"resource_type"`
	ResourceID   *string   `db:"resource_id"`
	StatusCode   int       `db:"status_code"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	Details      *string   `db:"details"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row *auditRow) toModel() *models.AuditLog {
	return &models.AuditLog{
		ID:           row.ID,
		UserID:       row.UserID,
		Action:       row.Action,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		StatusCode:   row.StatusCode,
		IPAddress:    row.IPAddress,
		UserAgent:    row.UserAgent,
		Details:      row.Details,
		CreatedAt:    row.CreatedAt,
	}
}

// AuditFilters contains filters for querying audit logs
type AuditFilters struct {
	UserID       *string
	Action       *string
	ResourceType *string
	StartDate    *time.Time
	EndDate      *time.Time
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, status_code, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.StatusCode,
		entry.IPAddress,
		entry.UserAgent,
		entry.Details,
		entry.CreatedAt,
	)
	return err
}

// ListAuditLogs retrieves audit logs with optional filters and pagination.
func (r *AuditRepository) ListAuditLogs(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.UserID != nil {
		where += ` AND user_id = ` + arg(*filters.UserID)
	}
	if filters.Action != nil {
		where += ` AND action = ` + arg(*filters.Action)
	}
	if filters.ResourceType != nil {
		where += ` AND resource_type = ` + arg(*filters.ResourceType)
	}
	if filters.StartDate != nil {
		where += ` AND created_at >= ` + arg(*filters.StartDate)
	}
	if filters.EndDate != nil {
		where += ` AND created_at <= ` + arg(*filters.EndDate)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, action, resource_type, resource_id, status_code, ip_address, user_agent, details, created_at
		FROM audit_logs` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	logs := make([]*models.AuditLog, 0, len(rows))
	for i := range rows {
		logs = append(logs, rows[i].toModel())
	}
	return logs, total, nil
}

// CountSince returns the number of audit entries recorded after the cutoff.
func (r *AuditRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM audit_logs WHERE created_at >= $1`, cutoff)
	return count, err
}
