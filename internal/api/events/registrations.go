// registrations.go covers the registration side of events: the registration
// form, attendee sign-up and the review queue with exports.
package events

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/export"
)

// exportPageSize is the hard ceiling on exported rows.
const exportPageSize = 10000

// FormRequest is the payload for creating or updating a registration form.
type FormRequest struct {
	Title    string           `json:"title" binding:"required"`
	Fields   models.FieldList `json:"fields" binding:"required"`
	IsActive *bool            `json:"is_active"`
	IsPublic bool             `json:"is_public"`
}

// CreateFormHandler creates the event's registration form, retiring any
// previous active one.
// POST /api/society/:societyID/events/:eventID/form
func (h *Handlers) CreateFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if msg := checkFields(req.Fields); msg != "" {
			respond.Error(c, http.StatusBadRequest, msg)
			return
		}
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		if active {
			current, err := h.forms.GetActiveEventForm(c.Request.Context(), event.ID)
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
			Kind:      models.FormKindEvent,
			SocietyID: event.SocietyID,
			EventID:   &event.ID,
			Title:     strings.TrimSpace(req.Title),
			Fields:    req.Fields,
			IsActive:  active,
			IsPublic:  req.IsPublic,
		}
		if err := h.forms.Create(c.Request.Context(), form); err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Registration form created", gin.H{"form": form})
	}
}

// UpdateFormHandler replaces the registration form's title, fields and flags.
// PUT /api/society/:societyID/events/:eventID/form/:formID
func (h *Handlers) UpdateFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if msg := checkFields(req.Fields); msg != "" {
			respond.Error(c, http.StatusBadRequest, msg)
			return
		}
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		form, err := h.forms.GetByID(c.Request.Context(), c.Param("formID"))
		if err != nil {
			respond.Internal(c, "Failed to load form", err)
			return
		}
		if form == nil || form.EventID == nil || *form.EventID != event.ID {
			respond.Error(c, http.StatusNotFound, "Form not found")
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

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Responses models.ResponseList `json:"responses" binding:"required"`
}

// RegisterHandler submits a registration for a published event.
// POST /api/society/:societyID/events/:eventID/register
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		reg, err := h.workflow.SubmitEventRegistration(c.Request.Context(),
			c.GetString("user_id"), event.ID, req.Responses)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Registration submitted", gin.H{"registration": reg})
	}
}

// ListRegistrationsHandler lists an event's registrations, optionally
// filtered by ?status=.
// GET /api/society/:societyID/events/:eventID/registrations
func (h *Handlers) ListRegistrationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		status, ok := statusFilter(c)
		if !ok {
			return
		}
		page, perPage := pagination(c)
		list, err := h.events.ListRegistrations(c.Request.Context(),
			event.ID, status, perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list registrations", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"registrations": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}

// ReviewRegistrationRequest is the payload for resolving a registration.
type ReviewRegistrationRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ReviewRegistrationHandler approves or rejects a pending registration.
// PUT /api/society/:societyID/events/:eventID/registrations/:registrationID
func (h *Handlers) ReviewRegistrationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReviewRegistrationRequest
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

		reg, err := h.workflow.ReviewEventRegistration(c.Request.Context(),
			c.Param("registrationID"), c.GetString("user_id"), approve, req.Reason)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		if reg == nil || reg.EventID != c.Param("eventID") {
			respond.Error(c, http.StatusNotFound, "Registration not found")
			return
		}
		respond.OK(c, http.StatusOK, "Registration "+strings.ToLower(string(reg.Status)), gin.H{
			"registration": reg,
		})
	}
}

// ExportRegistrationsHandler streams the event's registrations as a download.
// GET /api/society/:societyID/events/:eventID/registrations/export (xlsx)
// GET /api/society/:societyID/events/:eventID/registrations/export-pdf
func (h *Handlers) ExportRegistrationsHandler(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		form, err := h.forms.GetActiveEventForm(c.Request.Context(), event.ID)
		if err != nil {
			respond.Internal(c, "Failed to load form", err)
			return
		}
		if form == nil {
			respond.Error(c, http.StatusNotFound, "No registration form to export against")
			return
		}
		status, ok := statusFilter(c)
		if !ok {
			return
		}
		regs, err := h.events.ListRegistrations(c.Request.Context(),
			event.ID, status, exportPageSize, 0)
		if err != nil {
			respond.Internal(c, "Failed to load registrations", err)
			return
		}

		switch format {
		case "pdf":
			buf, err := export.RegistrationsPDF(event, form, regs)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			download(c, buf.Bytes(), "application/pdf", "registrations.pdf")
		default:
			buf, err := export.RegistrationsXLSX(event, form, regs)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			download(c, buf.Bytes(),
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"registrations.xlsx")
		}
	}
}

// checkFields validates authored field definitions for an event form.
func checkFields(fields models.FieldList) string {
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
		if _, err := models.ParseFieldType(string(f.FieldType), models.FormKindEvent); err != nil {
			return "Field " + label + ": " + err.Error()
		}
		if f.FieldType == models.FieldDropdown && len(f.Options) == 0 {
			return "Field " + label + ": dropdown needs options"
		}
	}
	return ""
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

func download(c *gin.Context, data []byte, contentType, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
