// profile.go implements the authenticated self-service surface under
// /api/user: the caller's own profile, society memberships and join requests.
package accounts

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// ProfileHandlers implements /api/user.
type ProfileHandlers struct {
	users    *repositories.UserRepository
	roles    *repositories.RoleRepository
	requests *repositories.RequestRepository
}

// NewProfileHandlers creates the profile handler set.
func NewProfileHandlers(db *sql.DB) *ProfileHandlers {
	return &ProfileHandlers{
		users:    repositories.NewUserRepository(db),
		roles:    repositories.NewRoleRepository(db),
		requests: repositories.NewRequestRepository(db),
	}
}

// GetMeHandler returns the caller's account.
// GET /api/user/me
func (h *ProfileHandlers) GetMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.users.GetUserByID(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			respond.Internal(c, "Failed to load profile", err)
			return
		}
		if user == nil {
			respond.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"user": user})
	}
}

// UpdateMeRequest is the payload for PUT /api/user/me.
type UpdateMeRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateMeHandler updates the caller's mutable profile fields.
// PUT /api/user/me
func (h *ProfileHandlers) UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respond.Error(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		if err := h.users.UpdateProfile(c.Request.Context(), c.GetString("user_id"), name); err != nil {
			respond.Internal(c, "Failed to update profile", err)
			return
		}
		respond.OK(c, http.StatusOK, "Profile updated", nil)
	}
}

// MySocietiesHandler lists the caller's role rows across societies.
// GET /api/user/societies
func (h *ProfileHandlers) MySocietiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.roles.ListSocietiesForUser(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			respond.Internal(c, "Failed to load memberships", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"memberships": rows})
	}
}

// MyRequestsHandler lists the caller's join requests, newest first.
// GET /api/user/requests
func (h *ProfileHandlers) MyRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := h.requests.ListByUser(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			respond.Internal(c, "Failed to load requests", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"requests": reqs})
	}
}
