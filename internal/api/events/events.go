// Package events implements the event surface nested under a society: event
// authoring and lifecycle, registration forms, attendee registration and the
// review queue.
package events

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/services"
	"github.com/societyhub/societyhub/internal/storage"
)

// Handlers implements /api/society/:societyID/events.
type Handlers struct {
	cfg      *config.Config
	events   *repositories.EventRepository
	forms    *repositories.FormRepository
	workflow *services.Workflow
}

// NewHandlers creates the event handler set.
func NewHandlers(cfg *config.Config, db *sql.DB, store storage.Store, mailer notify.Mailer) *Handlers {
	forms := repositories.NewFormRepository(db)
	requests := repositories.NewRequestRepository(db)
	events := repositories.NewEventRepository(db)
	roles := repositories.NewRoleRepository(db)
	groups := repositories.NewGroupRepository(db)
	users := repositories.NewUserRepository(db)
	societies := repositories.NewSocietyRepository(db)
	return &Handlers{
		cfg:    cfg,
		events: events,
		forms:  forms,
		workflow: services.NewWorkflow(
			forms, requests, events, roles, groups, users, societies, store, mailer),
	}
}

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at" binding:"required"`
	EndsAt      *time.Time `json:"ends_at"`
}

// CreateEventHandler creates a DRAFT event.
// POST /api/society/:societyID/events
func (h *Handlers) CreateEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
			respond.Error(c, http.StatusBadRequest, "Event cannot end before it starts")
			return
		}
		event := &models.Event{
			SocietyID:   c.Param("societyID"),
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Location:    req.Location,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
			CreatedBy:   c.GetString("user_id"),
		}
		if err := h.events.Create(c.Request.Context(), event); err != nil {
			respond.Internal(c, "Failed to create event", err)
			return
		}
		respond.OK(c, http.StatusCreated, "Event created", gin.H{"event": event})
	}
}

// ListEventsHandler lists the society's events. Drafts are hidden from
// anonymous callers.
// GET /api/society/:societyID/events
func (h *Handlers) ListEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.events.ListBySociety(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to list events", err)
			return
		}
		if c.GetString("user_id") == "" {
			visible := make([]*models.Event, 0, len(list))
			for _, e := range list {
				if e.Status != models.EventDraft {
					visible = append(visible, e)
				}
			}
			list = visible
		}
		respond.OK(c, http.StatusOK, "", gin.H{"events": list})
	}
}

// GetEventHandler returns one event with its active registration form.
// GET /api/society/:societyID/events/:eventID
func (h *Handlers) GetEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		if event.Status == models.EventDraft && c.GetString("user_id") == "" {
			respond.Error(c, http.StatusNotFound, "Event not found")
			return
		}
		form, err := h.forms.GetActiveEventForm(c.Request.Context(), event.ID)
		if err != nil {
			respond.Internal(c, "Failed to load registration form", err)
			return
		}
		payload := gin.H{"event": event}
		if form != nil {
			payload["form"] = form
		}
		respond.OK(c, http.StatusOK, "", payload)
	}
}

// UpdateEventHandler changes the mutable fields of an event.
// PUT /api/society/:societyID/events/:eventID
func (h *Handlers) UpdateEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
			respond.Error(c, http.StatusBadRequest, "Event cannot end before it starts")
			return
		}
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		if event.Status == models.EventCancelled {
			respond.Error(c, http.StatusBadRequest, "Cancelled events cannot be edited")
			return
		}
		event.Title = strings.TrimSpace(req.Title)
		event.Description = req.Description
		event.Location = req.Location
		event.StartsAt = req.StartsAt
		event.EndsAt = req.EndsAt
		if err := h.events.Update(c.Request.Context(), event); err != nil {
			respond.Internal(c, "Failed to update event", err)
			return
		}
		respond.OK(c, http.StatusOK, "Event updated", gin.H{"event": event})
	}
}

// PublishEventHandler opens a DRAFT event for registration.
// POST /api/society/:societyID/events/:eventID/publish
func (h *Handlers) PublishEventHandler() gin.HandlerFunc {
	return h.transition(models.EventDraft, models.EventPublished, "Event published")
}

// CancelEventHandler cancels a DRAFT or PUBLISHED event. Terminal.
// POST /api/society/:societyID/events/:eventID/cancel
func (h *Handlers) CancelEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		if event.Status == models.EventCancelled {
			respond.Error(c, http.StatusBadRequest, "Event is already cancelled")
			return
		}
		if err := h.events.SetStatus(c.Request.Context(), event.ID, models.EventCancelled); err != nil {
			respond.Internal(c, "Failed to cancel event", err)
			return
		}
		respond.OK(c, http.StatusOK, "Event cancelled", nil)
	}
}

func (h *Handlers) transition(from, to models.EventStatus, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := h.requireEvent(c)
		if err != nil || event == nil {
			return
		}
		if event.Status != from {
			respond.Error(c, http.StatusBadRequest,
				"Event must be "+string(from)+" to do this")
			return
		}
		if err := h.events.SetStatus(c.Request.Context(), event.ID, to); err != nil {
			respond.Internal(c, "Failed to update event", err)
			return
		}
		respond.OK(c, http.StatusOK, message, gin.H{"status": to})
	}
}

// requireEvent loads the event from the path and verifies it belongs to the
// society in the route.
func (h *Handlers) requireEvent(c *gin.Context) (*models.Event, error) {
	event, err := h.events.GetByID(c.Request.Context(), c.Param("eventID"))
	if err != nil {
		respond.Internal(c, "Failed to load event", err)
		return nil, err
	}
	if event == nil || event.SocietyID != c.Param("societyID") {
		respond.Error(c, http.StatusNotFound, "Event not found")
		return nil, nil
	}
	return event, nil
}

func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
