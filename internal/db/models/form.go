// form.go defines customizable forms (join forms and event registration
// forms) and the submissions made against them. Field definitions and
// submitted responses are stored as JSONB documents; the Go types here are
// the single source of truth for their shape.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// FormField is one field definition on a form. Order is monotonic and
// preserved; fetching a form returns fields sorted by it.
type FormField struct {
	Label      string    `json:"label"`
	FieldType  FieldType `json:"field_type"`
	IsRequired bool      `json:"is_required"`
	Options    []string  `json:"options,omitempty"`
	Order      int       `json:"order"`
}

// FieldList is an ordered set of field definitions, stored as a JSONB column.
type FieldList []FormField

// Value implements driver.Valuer for JSONB storage.
func (f FieldList) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB retrieval. Fields are re-sorted by
// their declared order so callers always see the authoring order regardless
// of JSON array layout.
func (f *FieldList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("FieldList: cannot scan %T", src)
	}
	if err := json.Unmarshal(b, f); err != nil {
		return err
	}
	sort.SliceStable(*f, func(i, j int) bool { return (*f)[i].Order < (*f)[j].Order })
	return nil
}

// FieldResponse is one submitted answer. FieldType is denormalized from the
// form definition at submission time, never trusted from the client.
type FieldResponse struct {
	FieldLabel string    `json:"field_label"`
	FieldType  FieldType `json:"field_type"`
	Value      any       `json:"value"`
}

// ResponseList is the submitted answers, stored as a JSONB column.
type ResponseList []FieldResponse

func (r ResponseList) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *ResponseList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("ResponseList: cannot scan %T", src)
	}
	return json.Unmarshal(b, r)
}

// Form is a customizable form. Kind JOIN forms hang off a society; kind EVENT
// forms hang off an event. A society has at most one active join form.
type Form struct {
	ID        string    `json:"id"`
	Kind      FormKind  `json:"kind"`
	SocietyID string    `json:"society_id"`
	EventID   *string   `json:"event_id,omitempty"`
	Title     string    `json:"title"`
	Fields    FieldList `json:"fields"`
	IsActive  bool      `json:"is_active"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JoinRequest is a user's submission against a society's join form.
// At most one PENDING row exists per (user, society); resolved history is
// retained.
type JoinRequest struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	SocietyID       string        `json:"society_id"`
	FormID          string        `json:"form_id"`
	Responses       ResponseList  `json:"responses"`
	SelectedGroupID *string       `json:"selected_group_id,omitempty"`
	Status          RequestStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// EventRegistration is the event analogue of JoinRequest.
type EventRegistration struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	EventID         string        `json:"event_id"`
	FormID          string        `json:"form_id"`
	Responses       ResponseList  `json:"responses"`
	Status          RequestStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
