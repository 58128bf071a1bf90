// Package societies implements the /api/society surface: founding requests,
// society CRUD and lifecycle, member and leadership management, and roster
// exports.
package societies

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
	"github.com/societyhub/societyhub/internal/services"
)

// Handlers implements /api/society.
type Handlers struct {
	cfg        *config.Config
	societies  *repositories.SocietyRepository
	roles      *repositories.RoleRepository
	groups     *repositories.GroupRepository
	membership *services.Membership
}

// NewHandlers creates the society handler set.
func NewHandlers(cfg *config.Config, db *sql.DB) *Handlers {
	roles := repositories.NewRoleRepository(db)
	groups := repositories.NewGroupRepository(db)
	users := repositories.NewUserRepository(db)
	societies := repositories.NewSocietyRepository(db)
	return &Handlers{
		cfg:        cfg,
		societies:  societies,
		roles:      roles,
		groups:     groups,
		membership: services.NewMembership(roles, groups, users, societies),
	}
}

// FoundingRequest is the payload for POST /api/society/request.
type FoundingRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// RequestSocietyHandler files a founding request for admin review.
// POST /api/society/request
func (h *Handlers) RequestSocietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FoundingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respond.Error(c, http.StatusBadRequest, "Society name cannot be empty")
			return
		}

		existing, err := h.societies.GetByName(c.Request.Context(), name)
		if err != nil {
			respond.Internal(c, "Failed to check society name", err)
			return
		}
		if existing != nil {
			respond.Error(c, http.StatusConflict, "A society with this name already exists")
			return
		}

		request := &models.SocietyRequest{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			RequestedBy: c.GetString("user_id"),
		}
		if err := h.societies.CreateRequest(c.Request.Context(), request); err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Society request submitted for review", gin.H{
			"request": request,
		})
	}
}

// ListSocietiesHandler lists societies with pagination.
// GET /api/society?page=1&per_page=20
func (h *Handlers) ListSocietiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pagination(c)
		list, err := h.societies.List(c.Request.Context(), perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list societies", err)
			return
		}
		total, err := h.societies.Count(c.Request.Context())
		if err != nil {
			respond.Internal(c, "Failed to list societies", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"societies": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// GetSocietyHandler returns one society with its groups.
// GET /api/society/:societyID
func (h *Handlers) GetSocietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		society, err := h.societies.GetByID(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to load society", err)
			return
		}
		if society == nil || society.Status == models.SocietyDeleted {
			respond.Error(c, http.StatusNotFound, "Society not found")
			return
		}
		groups, err := h.groups.ListBySociety(c.Request.Context(), society.ID)
		if err != nil {
			respond.Internal(c, "Failed to load groups", err)
			return
		}
		members, err := h.roles.CountMembers(c.Request.Context(), society.ID)
		if err != nil {
			respond.Internal(c, "Failed to load member count", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"society":      society,
			"groups":       groups,
			"member_count": members,
		})
	}
}

// UpdateSocietyRequest is the payload for PUT /api/society/:societyID.
type UpdateSocietyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateSocietyHandler updates name and description. President only.
// PUT /api/society/:societyID
func (h *Handlers) UpdateSocietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSocietyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		err := h.societies.Update(c.Request.Context(),
			c.Param("societyID"), strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Society updated", nil)
	}
}

// DeleteSocietyHandler soft-deletes a society. Terminal.
// DELETE /api/society/:societyID
func (h *Handlers) DeleteSocietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.membership.SetSocietyStatus(c.Request.Context(),
			c.Param("societyID"), models.SocietyDeleted)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Society deleted", nil)
	}
}

// SetStatusHandler toggles ACTIVE/SUSPENDED. Super-admin surface.
// POST /api/society/:societyID/suspend and /activate
func (h *Handlers) SetStatusHandler(target models.SocietyStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.membership.SetSocietyStatus(c.Request.Context(), c.Param("societyID"), target)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Society status updated", gin.H{"status": target})
	}
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
