// Package services implements higher-level business logic that coordinates
// across repositories and external systems. The join workflow, for example,
// spans form lookup, dynamic validation, attachment storage, the request
// row itself and a notification email — a multi-step operation no single
// repository owns.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/storage"
	"github.com/societyhub/societyhub/internal/telemetry"
	"github.com/societyhub/societyhub/internal/validation"
)

// attachmentURLTTL is how long signed attachment URLs stay valid when a
// reviewer opens a request.
const attachmentURLTTL = 15 * time.Minute

// Upload is one file submitted against a FILE field.
type Upload struct {
	FieldLabel  string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Workflow implements join-request and event-registration submission and
// review.
type Workflow struct {
	forms     *repositories.FormRepository
	requests  *repositories.RequestRepository
	events    *repositories.EventRepository
	roles     *repositories.RoleRepository
	groups    *repositories.GroupRepository
	users     *repositories.UserRepository
	societies *repositories.SocietyRepository
	store     storage.Store
	mailer    notify.Mailer
}

// NewWorkflow wires the workflow service.
func NewWorkflow(
	forms *repositories.FormRepository,
	requests *repositories.RequestRepository,
	events *repositories.EventRepository,
	roles *repositories.RoleRepository,
	groups *repositories.GroupRepository,
	users *repositories.UserRepository,
	societies *repositories.SocietyRepository,
	store storage.Store,
	mailer notify.Mailer,
) *Workflow {
	return &Workflow{
		forms:     forms,
		requests:  requests,
		events:    events,
		roles:     roles,
		groups:    groups,
		users:     users,
		societies: societies,
		store:     store,
		mailer:    mailer,
	}
}

// SubmitJoinRequest validates and persists a membership application.
//
// Uploads are stored before the row is written; an upload failure aborts the
// submission with nothing persisted. Stored attachment keys replace the FILE
// responses, and every persisted response carries the form's canonical field
// type rather than whatever the client sent.
func (w *Workflow) SubmitJoinRequest(ctx context.Context, userID, societyID string, responses models.ResponseList, selectedGroupID *string, uploads []Upload) (*models.JoinRequest, error) {
	society, err := w.societies.GetByID(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load society: %w", err)
	}
	if society == nil || society.Status == models.SocietyDeleted {
		return nil, ErrSocietyNotFound
	}
	if society.Status != models.SocietyActive {
		return nil, ErrSocietyNotActive
	}

	form, err := w.forms.GetActiveJoinForm(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load join form: %w", err)
	}
	if form == nil || !form.IsActive {
		return nil, ErrFormNotFound
	}

	role, err := w.roles.GetRole(ctx, userID, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if role != nil {
		return nil, repositories.ErrAlreadyMember
	}

	pending, err := w.requests.HasPending(ctx, userID, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, repositories.ErrPendingExists
	}

	if selectedGroupID != nil {
		group, err := w.groups.GetByID(ctx, *selectedGroupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load selected team: %w", err)
		}
		if group == nil || group.SocietyID != societyID {
			return nil, ErrTeamMismatch
		}
	}

	// Uploads splice into the response list before validation runs, so a
	// required FILE field satisfied only by a multipart part still counts.
	requestID := uuid.New().String()
	responses, storedKeys, err := w.attachUploads(ctx, societyID, requestID, form.Fields, responses, uploads)
	if err != nil {
		return nil, err
	}

	if errs := validation.ValidateResponses(form.Fields, responses); len(errs) > 0 {
		w.discardAttachments(ctx, storedKeys)
		return nil, &ValidationError{Fields: errs}
	}

	req := &models.JoinRequest{
		ID:              requestID,
		UserID:          userID,
		SocietyID:       societyID,
		FormID:          form.ID,
		Responses:       denormalizeTypes(form.Fields, responses),
		SelectedGroupID: selectedGroupID,
	}
	if err := w.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	telemetry.JoinRequestsTotal.WithLabelValues("submitted").Inc()

	w.notifyPresident(ctx, userID, society)
	return req, nil
}

// ReviewJoinRequest resolves a pending request. Approval creates the MEMBER
// role row and, when a same-society team was selected or overridden, the
// group membership. Either outcome emails the applicant on a detached send.
func (w *Workflow) ReviewJoinRequest(ctx context.Context, requestID, reviewerID string, approve bool, reason string, groupOverride *string) (*models.JoinRequest, error) {
	var req *models.JoinRequest
	var err error
	if approve {
		req, err = w.requests.Approve(ctx, requestID, reviewerID, groupOverride)
	} else {
		req, err = w.requests.Reject(ctx, requestID, reviewerID, reason)
	}
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, nil
	}

	if approve {
		telemetry.JoinRequestsTotal.WithLabelValues("approved").Inc()
	} else {
		telemetry.JoinRequestsTotal.WithLabelValues("rejected").Inc()
	}

	w.notifyDecision(ctx, req)
	return req, nil
}

// SubmitEventRegistration validates and persists an event registration.
func (w *Workflow) SubmitEventRegistration(ctx context.Context, userID, eventID string, responses models.ResponseList) (*models.EventRegistration, error) {
	event, err := w.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if event.Status != models.EventPublished {
		return nil, ErrEventNotOpen
	}

	form, err := w.forms.GetActiveEventForm(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event form: %w", err)
	}
	if form == nil || !form.IsActive {
		return nil, ErrFormNotFound
	}

	pending, err := w.events.HasPendingRegistration(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending registrations: %w", err)
	}
	if pending {
		return nil, repositories.ErrPendingExists
	}

	if errs := validation.ValidateResponses(form.Fields, responses); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	reg := &models.EventRegistration{
		UserID:    userID,
		EventID:   eventID,
		FormID:    form.ID,
		Responses: denormalizeTypes(form.Fields, responses),
	}
	if err := w.events.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	telemetry.EventRegistrationsTotal.WithLabelValues("submitted").Inc()
	return reg, nil
}

// ReviewEventRegistration resolves a pending registration and emails the
// applicant on a detached send.
func (w *Workflow) ReviewEventRegistration(ctx context.Context, registrationID, reviewerID string, approve bool, reason string) (*models.EventRegistration, error) {
	status := models.RequestApproved
	action := "approved"
	if !approve {
		status = models.RequestRejected
		action = "rejected"
	}

	reg, err := w.events.ResolveRegistration(ctx, registrationID, reviewerID, status, reason)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, nil
	}
	telemetry.EventRegistrationsTotal.WithLabelValues(action).Inc()

	w.notifyRegistrationDecision(ctx, reg)
	return reg, nil
}

// AttachmentURL resolves a stored attachment key into a download URL.
func (w *Workflow) AttachmentURL(ctx context.Context, key string) (string, error) {
	return w.store.URL(ctx, key, attachmentURLTTL)
}

// attachUploads stores each upload and splices the resulting key into the
// matching FILE response. Uploads against non-FILE fields are rejected before
// anything touches the backend.
func (w *Workflow) attachUploads(ctx context.Context, societyID, requestID string, fields models.FieldList, responses models.ResponseList, uploads []Upload) (models.ResponseList, []string, error) {
	if len(uploads) == 0 {
		return responses, nil, nil
	}

	fileFields := map[string]bool{}
	for _, f := range fields {
		if f.FieldType == models.FieldFile {
			fileFields[f.Label] = true
		}
	}

	var storedKeys []string
	for _, up := range uploads {
		if !fileFields[up.FieldLabel] {
			w.discardAttachments(ctx, storedKeys)
			return nil, nil, &ValidationError{Fields: []validation.FieldError{{
				Field:   up.FieldLabel,
				Message: "Unknown field",
			}}}
		}

		key := path.Join("societies", societyID, "requests", requestID, up.Filename)
		att, err := w.store.Put(ctx, key, up.Reader, up.Size, up.ContentType)
		if err != nil {
			w.discardAttachments(ctx, storedKeys)
			return nil, nil, fmt.Errorf("failed to store attachment %q: %w", up.Filename, err)
		}
		storedKeys = append(storedKeys, att.Key)

		replaced := false
		for i := range responses {
			if responses[i].FieldLabel == up.FieldLabel {
				responses[i].Value = att.Key
				replaced = true
				break
			}
		}
		if !replaced {
			responses = append(responses, models.FieldResponse{
				FieldLabel: up.FieldLabel,
				FieldType:  models.FieldFile,
				Value:      att.Key,
			})
		}
	}

	return responses, storedKeys, nil
}

// discardAttachments best-effort deletes uploads stored for a submission
// that never became a request row.
func (w *Workflow) discardAttachments(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := w.store.Delete(ctx, key); err != nil {
			slog.Warn("failed to discard attachment", "key", key, "error", err)
		}
	}
}

// denormalizeTypes stamps each response with the form's canonical field type.
// The client-sent type is never trusted.
func denormalizeTypes(fields models.FieldList, responses models.ResponseList) models.ResponseList {
	types := make(map[string]models.FieldType, len(fields))
	for _, f := range fields {
		types[f.Label] = f.FieldType
	}
	for i := range responses {
		if t, ok := types[responses[i].FieldLabel]; ok {
			responses[i].FieldType = t
		}
	}
	return responses
}

func (w *Workflow) notifyPresident(ctx context.Context, applicantID string, society *models.Society) {
	president, err := w.roles.GetPresident(ctx, society.ID)
	if err != nil || president == nil {
		if err != nil {
			slog.Warn("failed to look up president for notification", "society_id", society.ID, "error", err)
		}
		return
	}
	presidentUser, err := w.users.GetUserByID(ctx, president.UserID)
	if err != nil || presidentUser == nil {
		return
	}
	applicant, err := w.users.GetUserByID(ctx, applicantID)
	if err != nil || applicant == nil {
		return
	}

	subject, body := notify.JoinRequestMessage(presidentUser.Name, applicant.Name, society.Name)
	notify.SendDetached(w.mailer, "join_request", []string{presidentUser.Email}, subject, body)
}

func (w *Workflow) notifyDecision(ctx context.Context, req *models.JoinRequest) {
	applicant, err := w.users.GetUserByID(ctx, req.UserID)
	if err != nil || applicant == nil {
		return
	}
	society, err := w.societies.GetByID(ctx, req.SocietyID)
	if err != nil || society == nil {
		return
	}

	reason := ""
	if req.RejectionReason != nil {
		reason = *req.RejectionReason
	}
	subject, body := notify.RequestDecisionMessage(applicant.Name, society.Name, string(req.Status), reason)
	notify.SendDetached(w.mailer, "status_change", []string{applicant.Email}, subject, body)
}

func (w *Workflow) notifyRegistrationDecision(ctx context.Context, reg *models.EventRegistration) {
	applicant, err := w.users.GetUserByID(ctx, reg.UserID)
	if err != nil || applicant == nil {
		return
	}
	event, err := w.events.GetByID(ctx, reg.EventID)
	if err != nil || event == nil {
		return
	}

	subject, body := notify.EventRegistrationMessage(applicant.Name, event.Title, string(reg.Status))
	notify.SendDetached(w.mailer, "status_change", []string{applicant.Email}, subject, body)
}
