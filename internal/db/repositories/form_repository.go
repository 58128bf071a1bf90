// form_repository.go implements FormRepository for join and event forms.
// Field definitions live in a JSONB column; the FieldList scanner restores
// authoring order on every read.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// FormRepository handles form database operations
type FormRepository struct {
	db *sql.DB
}

// NewFormRepository creates a new FormRepository
func NewFormRepository(db *sql.DB) *FormRepository {
	return &FormRepository{db: db}
}

const formColumns = `id, kind, society_id, event_id, title, fields, is_active, is_public, created_at, updated_at`

func scanForm(row *sql.Row) (*models.Form, error) {
	f := &models.Form{}
	err := row.Scan(
		&f.ID, &f.Kind, &f.SocietyID, &f.EventID, &f.Title,
		&f.Fields, &f.IsActive, &f.IsPublic, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create persists a new form. A second active join form for the same society
// trips the partial unique index and returns ErrDuplicateName.
func (r *FormRepository) Create(ctx context.Context, form *models.Form) error {
	form.ID = uuid.New().String()
	form.CreatedAt = time.Now()
	form.UpdatedAt = form.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO forms (id, kind, society_id, event_id, title, fields, is_active, is_public, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		form.ID, form.Kind, form.SocietyID, form.EventID, form.Title,
		form.Fields, form.IsActive, form.IsPublic, form.CreatedAt, form.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// GetByID retrieves a form. Returns (nil, nil) when absent.
func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`
	return scanForm(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveJoinForm returns the society's active join form, or (nil, nil).
func (r *FormRepository) GetActiveJoinForm(ctx context.Context, societyID string) (*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE society_id = $1 AND kind = $2 AND is_active`
	return scanForm(r.db.QueryRowContext(ctx, query, societyID, models.FormKindJoin))
}

// GetActiveEventForm returns the event's active registration form.
func (r *FormRepository) GetActiveEventForm(ctx context.Context, eventID string) (*models.Form, error) {
	query := `
		SELECT ` + formColumns + ` FROM forms
		WHERE event_id = $1 AND kind = $2 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanForm(r.db.QueryRowContext(ctx, query, eventID, models.FormKindEvent))
}

// ListBySociety returns all of a society's forms.
func (r *FormRepository) ListBySociety(ctx context.Context, societyID string) ([]*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE society_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []*models.Form
	for rows.Next() {
		f := &models.Form{}
		if err := rows.Scan(
			&f.ID, &f.Kind, &f.SocietyID, &f.EventID, &f.Title,
			&f.Fields, &f.IsActive, &f.IsPublic, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// Update replaces the form's title, fields and flags.
func (r *FormRepository) Update(ctx context.Context, form *models.Form) error {
	form.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE forms SET title = $1, fields = $2, is_active = $3, is_public = $4, updated_at = $5
		 WHERE id = $6`,
		form.Title, form.Fields, form.IsActive, form.IsPublic, form.UpdatedAt, form.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate retires a form without deleting submission history.
func (r *FormRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE forms SET is_active = false, updated_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
