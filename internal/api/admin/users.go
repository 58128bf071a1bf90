// users.go implements user moderation: listing accounts and toggling
// suspension. Suspension also revokes every outstanding refresh token so the
// account is locked out immediately, not at access-token expiry.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// UserHandlers moderates user accounts.
type UserHandlers struct {
	cfg    *config.Config
	users  *repositories.UserRepository
	tokens *repositories.TokenRepository
}

// NewUserHandlers creates the user moderation handler set.
func NewUserHandlers(cfg *config.Config, db *sql.DB) *UserHandlers {
	return &UserHandlers{
		cfg:    cfg,
		users:  repositories.NewUserRepository(db),
		tokens: repositories.NewTokenRepository(db),
	}
}

// ListUsersHandler lists accounts with pagination.
// GET /api/admin/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pagination(c)
		list, err := h.users.ListUsers(c.Request.Context(), perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list users", err)
			return
		}
		total, err := h.users.CountUsers(c.Request.Context())
		if err != nil {
			respond.Internal(c, "Failed to list users", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"users": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// SuspendUserHandler suspends an account and revokes its refresh tokens.
// POST /api/admin/users/:userID/suspend
func (h *UserHandlers) SuspendUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userID")
		user, err := h.requireUser(c, userID)
		if err != nil || user == nil {
			return
		}
		if user.ID == c.GetString("user_id") {
			respond.Error(c, http.StatusBadRequest, "You cannot suspend your own account")
			return
		}
		if err := h.users.SetStatus(c.Request.Context(), userID, models.UserSuspended); err != nil {
			respond.Internal(c, "Failed to suspend user", err)
			return
		}
		if err := h.tokens.RevokeAllForUser(c.Request.Context(), userID); err != nil {
			respond.Internal(c, "Failed to revoke sessions", err)
			return
		}
		respond.OK(c, http.StatusOK, "User suspended", nil)
	}
}

// ActivateUserHandler lifts a suspension.
// POST /api/admin/users/:userID/activate
func (h *UserHandlers) ActivateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userID")
		user, err := h.requireUser(c, userID)
		if err != nil || user == nil {
			return
		}
		if user.Status != models.UserSuspended {
			respond.Error(c, http.StatusBadRequest, "User is not suspended")
			return
		}
		if err := h.users.SetStatus(c.Request.Context(), userID, models.UserActive); err != nil {
			respond.Internal(c, "Failed to activate user", err)
			return
		}
		respond.OK(c, http.StatusOK, "User activated", nil)
	}
}

func (h *UserHandlers) requireUser(c *gin.Context, userID string) (*models.User, error) {
	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respond.Internal(c, "Failed to load user", err)
		return nil, err
	}
	if user == nil {
		respond.Error(c, http.StatusNotFound, "User not found")
		return nil, nil
	}
	return user, nil
}
