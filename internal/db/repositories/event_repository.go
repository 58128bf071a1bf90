// event_repository.go implements EventRepository for events and their
// registrations. Registrations share the PENDING→APPROVED/REJECTED machine
// with join requests but carry no membership side effects.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// EventRepository handles event and event-registration database operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, society_id, title, description, location, starts_at, ends_at,
	status, created_by, created_at, updated_at`

func scanEvent(row *sql.Row) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.ID, &e.SocietyID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create persists a new event in DRAFT state.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	event.ID = uuid.New().String()
	if event.Status == "" {
		event.Status = models.EventDraft
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, society_id, title, description, location, starts_at, ends_at, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.SocietyID, event.Title, event.Description, event.Location,
		event.StartsAt, event.EndsAt, event.Status, event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	)
	return err
}

// GetByID retrieves an event. Returns (nil, nil) when absent.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

// ListBySociety returns a society's events, soonest first.
func (r *EventRepository) ListBySociety(ctx context.Context, societyID string) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE society_id = $1 ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, query, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e := &models.Event{}
		if err := rows.Scan(
			&e.ID, &e.SocietyID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
			&e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update changes the mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = $1, description = $2, location = $3, starts_at = $4, ends_at = $5, updated_at = $6
		 WHERE id = $7`,
		event.Title, event.Description, event.Location, event.StartsAt, event.EndsAt, event.UpdatedAt, event.ID,
	)
	return err
}

// SetStatus drives the event lifecycle (DRAFT → PUBLISHED → CANCELLED).
func (r *EventRepository) SetStatus(ctx context.Context, id string, status models.EventStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	return err
}

// --- registrations ---

const registrationColumns = `id, user_id, event_id, form_id, responses, status,
	rejection_reason, reviewed_by, reviewed_at, created_at`

// CreateRegistration persists a PENDING registration. The partial unique
// index turns a duplicate pending registration into ErrPendingExists.
func (r *EventRepository) CreateRegistration(ctx context.Context, reg *models.EventRegistration) error {
	reg.ID = uuid.New().String()
	reg.Status = models.RequestPending
	reg.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_registrations (id, user_id, event_id, form_id, responses, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reg.ID, reg.UserID, reg.EventID, reg.FormID, reg.Responses, reg.Status, reg.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrPendingExists
	}
	return err
}

// GetRegistrationByID retrieves a registration. Returns (nil, nil) when absent.
func (r *EventRepository) GetRegistrationByID(ctx context.Context, id string) (*models.EventRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE id = $1`
	reg := &models.EventRegistration{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.UserID, &reg.EventID, &reg.FormID, &reg.Responses, &reg.Status,
		&reg.RejectionReason, &reg.ReviewedBy, &reg.ReviewedAt, &reg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// HasPendingRegistration reports whether the user already has a PENDING
// registration for the event.
func (r *EventRepository) HasPendingRegistration(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_registrations WHERE user_id = $1 AND event_id = $2 AND status = $3)`,
		userID, eventID, models.RequestPending,
	).Scan(&exists)
	return exists, err
}

// ListRegistrations returns an event's registrations filtered by status
// ("" for all), newest first.
func (r *EventRepository) ListRegistrations(ctx context.Context, eventID string, status models.RequestStatus, limit, offset int) ([]*models.EventRegistration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, eventID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*models.EventRegistration
	for rows.Next() {
		reg := &models.EventRegistration{}
		if err := rows.Scan(
			&reg.ID, &reg.UserID, &reg.EventID, &reg.FormID, &reg.Responses, &reg.Status,
			&reg.RejectionReason, &reg.ReviewedBy, &reg.ReviewedAt, &reg.CreatedAt,
		); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ResolveRegistration moves a PENDING registration to APPROVED or REJECTED.
// A resolved registration can never transition again.
func (r *EventRepository) ResolveRegistration(ctx context.Context, id, reviewerID string, status models.RequestStatus, reason string) (*models.EventRegistration, error) {
	var reasonArg any
	if reason != "" {
		reasonArg = reason
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE event_registrations SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $5 AND status = $6`,
		status, reasonArg, reviewerID, time.Now(), id, models.RequestPending,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, err := r.GetRegistrationByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyProcessed
	}
	return r.GetRegistrationByID(ctx, id)
}
