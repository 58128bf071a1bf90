// Package admin implements the super-admin surface: founding-request review,
// user moderation, audit log access and platform stats.
package admin

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
)

// RequestHandlers reviews society founding requests.
type RequestHandlers struct {
	cfg       *config.Config
	societies *repositories.SocietyRepository
	users     *repositories.UserRepository
	mailer    notify.Mailer
}

// NewRequestHandlers creates the founding-request handler set.
func NewRequestHandlers(cfg *config.Config, db *sql.DB, mailer notify.Mailer) *RequestHandlers {
	return &RequestHandlers{
		cfg:       cfg,
		societies: repositories.NewSocietyRepository(db),
		users:     repositories.NewUserRepository(db),
		mailer:    mailer,
	}
}

// ListRequestsHandler lists founding requests, optionally filtered by
// ?status=PENDING|APPROVED|REJECTED.
// GET /api/admin/society-requests
func (h *RequestHandlers) ListRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.ToUpper(c.Query("status"))
		status := models.RequestStatus(raw)
		switch status {
		case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
		default:
			respond.Error(c, http.StatusBadRequest, "Unknown status filter")
			return
		}
		page, perPage := pagination(c)
		list, err := h.societies.ListRequests(c.Request.Context(), status, perPage, (page-1)*perPage)
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

// ApproveRequestHandler approves a founding request, creating the society
// with the requester as PRESIDENT.
// POST /api/admin/society-requests/:requestID/approve
func (h *RequestHandlers) ApproveRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("requestID")
		society, err := h.societies.ApproveRequest(c.Request.Context(),
			requestID, c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		if society == nil {
			respond.Error(c, http.StatusNotFound, "Request not found")
			return
		}

		h.notifyRequester(c, society.CreatedBy, society.Name, string(models.RequestApproved), "")
		respond.OK(c, http.StatusOK, "Society created", gin.H{"society": society})
	}
}

// RejectRequest is the payload for rejecting a founding request.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RejectRequestHandler rejects a founding request with an optional reason.
// POST /api/admin/society-requests/:requestID/reject
func (h *RequestHandlers) RejectRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		requestID := c.Param("requestID")
		request, err := h.societies.GetRequestByID(c.Request.Context(), requestID)
		if err != nil {
			respond.Internal(c, "Failed to load request", err)
			return
		}
		if request == nil {
			respond.Error(c, http.StatusNotFound, "Request not found")
			return
		}
		err = h.societies.RejectRequest(c.Request.Context(),
			requestID, c.GetString("user_id"), req.Reason)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}

		h.notifyRequester(c, request.RequestedBy, request.Name, string(models.RequestRejected), req.Reason)
		respond.OK(c, http.StatusOK, "Request rejected", nil)
	}
}

// notifyRequester emails the founding requester about the decision on a
// detached send. Lookup failures only cost the notification.
func (h *RequestHandlers) notifyRequester(c *gin.Context, userID, societyName, status, reason string) {
	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		return
	}
	subject, body := notify.RequestDecisionMessage(user.Name, societyName, status, reason)
	notify.SendDetached(h.mailer, "status_change", []string{user.Email}, subject, body)
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
