// Package forms implements the join-form surface: form authoring, the public
// form view, multipart application submission and the review queue.
package forms

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/services"
	"github.com/societyhub/societyhub/internal/storage"
)

// Handlers implements the join-form and join-request routes.
type Handlers struct {
	cfg       *config.Config
	forms     *repositories.FormRepository
	requests  *repositories.RequestRepository
	societies *repositories.SocietyRepository
	workflow  *services.Workflow
}

// NewHandlers creates the form handler set.
func NewHandlers(cfg *config.Config, db *sql.DB, store storage.Store, mailer notify.Mailer) *Handlers {
	forms := repositories.NewFormRepository(db)
	requests := repositories.NewRequestRepository(db)
	events := repositories.NewEventRepository(db)
	roles := repositories.NewRoleRepository(db)
	groups := repositories.NewGroupRepository(db)
	users := repositories.NewUserRepository(db)
	societies := repositories.NewSocietyRepository(db)
	return &Handlers{
		cfg:       cfg,
		forms:     forms,
		requests:  requests,
		societies: societies,
		workflow: services.NewWorkflow(
			forms, requests, events, roles, groups, users, societies, store, mailer),
	}
}

// FormRequest is the payload for creating or updating a join form.
type FormRequest struct {
	Title    string           `json:"title" binding:"required"`
	Fields   models.FieldList `json:"fields" binding:"required"`
	IsActive *bool            `json:"is_active"`
	IsPublic bool             `json:"is_public"`
}

// CreateJoinFormHandler creates the society's join form. If an active join
// form already exists and the new one is active, the old one is retired so
// the one-active-form rule holds.
// POST /api/society/:societyID/join-form
func (h *Handlers) CreateJoinFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if msg := checkFields(req.Fields, models.FormKindJoin); msg != "" {
			respond.Error(c, http.StatusBadRequest, msg)
			return
		}

		societyID := c.Param("societyID")
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		if active {
			current, err := h.forms.GetActiveJoinForm(c.Request.Context(), societyID)
			if err != nil {
				respond.Internal(c, "Failed to check existing form", err)
				return
			}
			if current != nil {
				if err := h.forms.Deactivate(c.Request.Context(), current.ID); err != nil {
					respond.Internal(c, "Failed to retire previous form", err)
					return
				}
			}
		}

		form := &models.Form{
			Kind:      models.FormKindJoin,
			SocietyID: societyID,
			Title:     strings.TrimSpace(req.Title),
			Fields:    req.Fields,
			IsActive:  active,
			IsPublic:  req.IsPublic,
		}
		if err := h.forms.Create(c.Request.Context(), form); err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Join form created", gin.H{"form": form})
	}
}

// GetJoinFormHandler returns the society's active join form. Unauthenticated
// callers only see it when the form is public.
// GET /api/society/:societyID/join-form
func (h *Handlers) GetJoinFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := h.forms.GetActiveJoinForm(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to load form", err)
			return
		}
		if form == nil || (!form.IsPublic && c.GetString("user_id") == "") {
			respond.Error(c, http.StatusNotFound, "No join form available")
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"form": form})
	}
}

// ListFormsHandler lists every form the society has authored, retired ones
// included.
// GET /api/society/:societyID/forms
func (h *Handlers) ListFormsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.forms.ListBySociety(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to list forms", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"forms": list})
	}
}

// UpdateJoinFormHandler replaces a form's title, fields and flags.
// PUT /api/society/:societyID/join-form/:formID
func (h *Handlers) UpdateJoinFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if msg := checkFields(req.Fields, models.FormKindJoin); msg != "" {
			respond.Error(c, http.StatusBadRequest, msg)
			return
		}
		form, err := h.requireForm(c)
		if err != nil || form == nil {
			return
		}
		form.Title = strings.TrimSpace(req.Title)
		form.Fields = req.Fields
		if req.IsActive != nil {
			form.IsActive = *req.IsActive
		}
		form.IsPublic = req.IsPublic
		if err := h.forms.Update(c.Request.Context(), form); err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Form updated", gin.H{"form": form})
	}
}

// DeactivateJoinFormHandler retires a form; submission history stays intact.
// DELETE /api/society/:societyID/join-form/:formID
func (h *Handlers) DeactivateJoinFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := h.requireForm(c)
		if err != nil || form == nil {
			return
		}
		if err := h.forms.Deactivate(c.Request.Context(), form.ID); err != nil {
			respond.Internal(c, "Failed to deactivate form", err)
			return
		}
		respond.OK(c, http.StatusOK, "Form deactivated", nil)
	}
}

// submitPayload is the JSON part of a submission, either the whole request
// body or the "responses"/"selected_group_id" multipart values.
type submitPayload struct {
	Responses       models.ResponseList `json:"responses" binding:"required"`
	SelectedGroupID *string             `json:"selected_group_id"`
}

// SubmitJoinRequestHandler submits a membership application. Plain JSON works
// for forms without FILE fields; multipart carries the answers in a
// "responses" value plus one file part per FILE field label.
// POST /api/society/:societyID/join-form/submit
func (h *Handlers) SubmitJoinRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload submitPayload
		var uploads []services.Upload

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			var cleanup func()
			var ok bool
			payload, uploads, cleanup, ok = h.parseMultipart(c)
			if !ok {
				return
			}
			defer cleanup()
		} else {
			if err := c.ShouldBindJSON(&payload); err != nil {
				respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
				return
			}
		}

		req, err := h.workflow.SubmitJoinRequest(c.Request.Context(),
			c.GetString("user_id"), c.Param("societyID"),
			payload.Responses, payload.SelectedGroupID, uploads)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Application submitted", gin.H{"request": req})
	}
}

// ListRequestsHandler lists the society's join requests, optionally filtered
// by ?status=PENDING|APPROVED|REJECTED.
// GET /api/society/:societyID/requests
func (h *Handlers) ListRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := statusFilter(c)
		if !ok {
			return
		}
		page, perPage := pagination(c)
		list, err := h.requests.ListBySociety(c.Request.Context(),
			c.Param("societyID"), status, perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list requests", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"requests": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}

// ReviewRequest is the payload for resolving a join request.
type ReviewRequest struct {
	Action  string  `json:"action" binding:"required"`
	Reason  string  `json:"reason"`
	GroupID *string `json:"group_id"`
}

// ReviewRequestHandler approves or rejects a pending join request.
// PUT /api/society/:societyID/requests/:requestID
func (h *Handlers) ReviewRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		approve := false
		switch strings.ToLower(req.Action) {
		case "approve":
			approve = true
		case "reject":
		default:
			respond.Error(c, http.StatusBadRequest, "Action must be approve or reject")
			return
		}

		resolved, err := h.workflow.ReviewJoinRequest(c.Request.Context(),
			c.Param("requestID"), c.GetString("user_id"), approve, req.Reason, req.GroupID)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		if resolved == nil {
			respond.Error(c, http.StatusNotFound, "Join request not found")
			return
		}
		// Cross-society review is blocked here rather than in the service;
		// the middleware already resolved the caller's role in this society.
		if resolved.SocietyID != c.Param("societyID") {
			respond.Error(c, http.StatusNotFound, "Join request not found")
			return
		}
		respond.OK(c, http.StatusOK, "Request "+strings.ToLower(string(resolved.Status)), gin.H{
			"request": resolved,
		})
	}
}

// AttachmentURLHandler resolves a stored attachment key into a short-lived
// download URL for reviewers.
// GET /api/society/:societyID/requests/attachment?key=...
func (h *Handlers) AttachmentURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query("key")
		// Keys are namespaced per society; a reviewer can only resolve keys
		// inside their own society's prefix.
		if key == "" || !strings.HasPrefix(key, "societies/"+c.Param("societyID")+"/") {
			respond.Error(c, http.StatusBadRequest, "Invalid attachment key")
			return
		}
		url, err := h.workflow.AttachmentURL(c.Request.Context(), key)
		if err != nil {
			respond.Internal(c, "Failed to resolve attachment", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"url": url})
	}
}

// checkFields validates authored field definitions for a form kind. Returns
// an empty string when the definitions are sound.
func checkFields(fields models.FieldList, kind models.FormKind) string {
	if len(fields) == 0 {
		return "A form needs at least one field"
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		label := strings.TrimSpace(f.Label)
		if label == "" {
			return "Field labels cannot be empty"
		}
		if seen[label] {
			return "Duplicate field label: " + label
		}
		seen[label] = true
		if _, err := models.ParseFieldType(string(f.FieldType), kind); err != nil {
			return "Field " + label + ": " + err.Error()
		}
		if f.FieldType == models.FieldDropdown && len(f.Options) == 0 {
			return "Field " + label + ": dropdown needs options"
		}
	}
	return ""
}

// requireForm loads a join form from the path and checks it belongs to the
// society in the route.
func (h *Handlers) requireForm(c *gin.Context) (*models.Form, error) {
	form, err := h.forms.GetByID(c.Request.Context(), c.Param("formID"))
	if err != nil {
		respond.Internal(c, "Failed to load form", err)
		return nil, err
	}
	if form == nil || form.SocietyID != c.Param("societyID") || form.Kind != models.FormKindJoin {
		respond.Error(c, http.StatusNotFound, "Form not found")
		return nil, nil
	}
	return form, nil
}

func statusFilter(c *gin.Context) (models.RequestStatus, bool) {
	raw := strings.ToUpper(c.Query("status"))
	switch models.RequestStatus(raw) {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
		return models.RequestStatus(raw), true
	default:
		respond.Error(c, http.StatusBadRequest, "Unknown status filter")
		return "", false
	}
}

func decodeResponses(raw string, payload *submitPayload) error {
	return json.Unmarshal([]byte(raw), &payload.Responses)
}
