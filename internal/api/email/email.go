// Package email implements bulk email to society members, filtered by role
// or group.
package email

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/services"
)

// Handlers implements /api/email/:societyID.
type Handlers struct {
	cfg  *config.Config
	bulk *services.BulkMailer
}

// NewHandlers creates the email handler set.
func NewHandlers(cfg *config.Config, db *sql.DB, mailer notify.Mailer) *Handlers {
	roles := repositories.NewRoleRepository(db)
	groups := repositories.NewGroupRepository(db)
	return &Handlers{
		cfg:  cfg,
		bulk: services.NewBulkMailer(roles, groups, mailer),
	}
}

// BulkRequest is the payload for a bulk send.
type BulkRequest struct {
	Subject string  `json:"subject" binding:"required"`
	Body    string  `json:"body" binding:"required"`
	Role    *string `json:"role"`
	GroupID *string `json:"group_id"`
}

// SendBulkHandler emails every matching member of the society and returns a
// per-recipient delivery summary.
// POST /api/email/:societyID
func (h *Handlers) SendBulkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
			respond.Error(c, http.StatusBadRequest, "Subject and body cannot be empty")
			return
		}

		var role *models.Role
		if req.Role != nil && *req.Role != "" {
			parsed, err := models.ParseRole(*req.Role)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "Unknown role filter")
				return
			}
			role = &parsed
		}

		result, err := h.bulk.Send(c.Request.Context(),
			c.Param("societyID"), req.Subject, req.Body, role, req.GroupID)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Bulk send complete", gin.H{"result": result})
	}
}
