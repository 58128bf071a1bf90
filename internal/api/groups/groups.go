// Package groups implements the group (team) surface nested under a society:
// CRUD plus group membership management.
package groups

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/services"
)

// Handlers implements /api/society/:societyID/groups.
type Handlers struct {
	cfg        *config.Config
	groups     *repositories.GroupRepository
	roles      *repositories.RoleRepository
	membership *services.Membership
}

// NewHandlers creates the group handler set.
func NewHandlers(cfg *config.Config, db *sql.DB) *Handlers {
	groups := repositories.NewGroupRepository(db)
	roles := repositories.NewRoleRepository(db)
	users := repositories.NewUserRepository(db)
	societies := repositories.NewSocietyRepository(db)
	return &Handlers{
		cfg:        cfg,
		groups:     groups,
		roles:      roles,
		membership: services.NewMembership(roles, groups, users, societies),
	}
}

// GroupRequest is the payload for creating or updating a group.
type GroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateGroupHandler creates a group inside the society.
// POST /api/society/:societyID/groups
func (h *Handlers) CreateGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respond.Error(c, http.StatusBadRequest, "Group name cannot be empty")
			return
		}
		group := &models.Group{
			SocietyID:   c.Param("societyID"),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
		}
		if err := h.groups.Create(c.Request.Context(), group); err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Group created", gin.H{"group": group})
	}
}

// ListGroupsHandler lists the society's groups.
// GET /api/society/:societyID/groups
func (h *Handlers) ListGroupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.groups.ListBySociety(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to list groups", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"groups": list})
	}
}

// UpdateGroupHandler renames a group or changes its description.
// PUT /api/society/:societyID/groups/:groupID
func (h *Handlers) UpdateGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		group, err := h.requireGroup(c)
		if err != nil || group == nil {
			return
		}
		err = h.groups.Update(c.Request.Context(), group.ID,
			strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Group updated", nil)
	}
}

// DeleteGroupHandler deletes a group. Its leaders are demoted back to MEMBER
// in the same transaction.
// DELETE /api/society/:societyID/groups/:groupID
func (h *Handlers) DeleteGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		group, err := h.requireGroup(c)
		if err != nil || group == nil {
			return
		}
		if err := h.membership.DeleteGroup(c.Request.Context(), group.ID); err != nil {
			respond.Internal(c, "Failed to delete group", err)
			return
		}
		respond.OK(c, http.StatusOK, "Group deleted", nil)
	}
}

// AddGroupMemberRequest is the payload for adding a member to a group.
type AddGroupMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddGroupMemberHandler adds a society member to the group.
// POST /api/society/:societyID/groups/:groupID/members
func (h *Handlers) AddGroupMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddGroupMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		group, err := h.requireGroup(c)
		if err != nil || group == nil {
			return
		}

		// Only society members can join a group.
		role, err := h.roles.GetRole(c.Request.Context(), req.UserID, group.SocietyID)
		if err != nil {
			respond.Internal(c, "Failed to check membership", err)
			return
		}
		if role == nil {
			respond.Error(c, http.StatusBadRequest, "User is not a member of this society")
			return
		}

		err = h.groups.AddMember(c.Request.Context(), group.ID, req.UserID, group.SocietyID)
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Member added to group", nil)
	}
}

// RemoveGroupMemberHandler removes a user from the group.
// DELETE /api/society/:societyID/groups/:groupID/members/:userID
func (h *Handlers) RemoveGroupMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		group, err := h.requireGroup(c)
		if err != nil || group == nil {
			return
		}
		err = h.groups.RemoveMember(c.Request.Context(), group.ID, c.Param("userID"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Member removed from group", nil)
	}
}

// ListGroupMembersHandler lists the group's members with user details.
// GET /api/society/:societyID/groups/:groupID/members
func (h *Handlers) ListGroupMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		group, err := h.requireGroup(c)
		if err != nil || group == nil {
			return
		}
		members, err := h.groups.ListMembers(c.Request.Context(), group.ID)
		if err != nil {
			respond.Internal(c, "Failed to list group members", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"members": members})
	}
}

// requireGroup loads the group from the path and verifies it belongs to the
// society in the route. Writes the error response itself; callers bail when
// the group is nil.
func (h *Handlers) requireGroup(c *gin.Context) (*models.Group, error) {
	group, err := h.groups.GetByID(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respond.Internal(c, "Failed to load group", err)
		return nil, err
	}
	if group == nil || group.SocietyID != c.Param("societyID") {
		respond.Error(c, http.StatusNotFound, "Group not found")
		return nil, nil
	}
	return group, nil
}
