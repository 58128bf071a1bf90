// members.go implements member and leadership management plus roster exports.
// Role checks happen in the route middleware; handlers trust the resolved
// society scope in the request context.
package societies

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/export"
)

// ListMembersHandler lists a society's members with user details.
// GET /api/society/:societyID/members
func (h *Handlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pagination(c)
		members, err := h.roles.ListMembers(c.Request.Context(),
			c.Param("societyID"), perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list members", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"members": members,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}

// AddMemberRequest is the payload for POST /api/society/:societyID/members.
type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
}

// AddMemberHandler adds an existing account directly as MEMBER, bypassing the
// join workflow.
// POST /api/society/:societyID/members
func (h *Handlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		row, err := h.membership.AddMember(c.Request.Context(),
			strings.ToLower(strings.TrimSpace(req.Email)),
			c.Param("societyID"), c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusCreated, "Member added", gin.H{"membership": row})
	}
}

// UpdateMemberRoleRequest is the payload for PUT .../members/:memberID.
type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateMemberRoleHandler changes a member's society-level role. Leadership
// roles go through the leadership endpoints instead.
// PUT /api/society/:societyID/members/:memberID
func (h *Handlers) UpdateMemberRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateMemberRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		role, err := models.ParseRole(req.Role)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "Unknown role")
			return
		}
		err = h.membership.UpdateMemberRole(c.Request.Context(),
			c.Param("memberID"), c.Param("societyID"), role, c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Role updated", nil)
	}
}

// RemoveMemberHandler removes a member from the society. The president must
// transfer the presidency first.
// DELETE /api/society/:societyID/members/:memberID
func (h *Handlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.membership.RemoveMember(c.Request.Context(),
			c.Param("memberID"), c.Param("societyID"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Member removed", nil)
	}
}

// LeadershipRequest is the payload for the leadership endpoints.
type LeadershipRequest struct {
	UserID  string      `json:"user_id" binding:"required"`
	GroupID string      `json:"group_id" binding:"required"`
	Role    models.Role `json:"role"`
}

// AssignLeadershipHandler makes a member LEAD or CO-LEAD of a group.
// POST /api/society/:societyID/leadership
func (h *Handlers) AssignLeadershipHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LeadershipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		err := h.membership.AssignLeadership(c.Request.Context(),
			req.UserID, c.Param("societyID"), req.GroupID, req.Role, c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Leadership assigned", nil)
	}
}

// RemoveLeadershipHandler downgrades a group leader back to MEMBER.
// DELETE /api/society/:societyID/leadership?user_id=...&group_id=...
func (h *Handlers) RemoveLeadershipHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		groupID := c.Query("group_id")
		if userID == "" || groupID == "" {
			respond.Error(c, http.StatusBadRequest, "user_id and group_id are required")
			return
		}
		err := h.membership.RemoveLeadership(c.Request.Context(),
			userID, c.Param("societyID"), groupID, c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Leadership removed", nil)
	}
}

// TransferPresidencyRequest is the payload for the president transfer.
type TransferPresidencyRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// TransferPresidencyHandler hands the PRESIDENT role to another user. The
// previous president becomes MEMBER in the same transaction.
// POST /api/society/:societyID/president
func (h *Handlers) TransferPresidencyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferPresidencyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		err := h.membership.ChangePresident(c.Request.Context(),
			c.Param("societyID"), req.UserID, c.GetString("user_id"))
		if err != nil {
			respond.ServiceError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Presidency transferred", nil)
	}
}

// ExportMembersHandler streams the member roster as a downloadable document.
// GET /api/society/:societyID/members/export (xlsx)
// GET /api/society/:societyID/members/export-pdf
func (h *Handlers) ExportMembersHandler(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		society, err := h.societies.GetByID(c.Request.Context(), c.Param("societyID"))
		if err != nil {
			respond.Internal(c, "Failed to load society", err)
			return
		}
		if society == nil {
			respond.Error(c, http.StatusNotFound, "Society not found")
			return
		}

		// Exports are unpaginated; the repository page size doubles as a
		// hard ceiling.
		members, err := h.roles.ListMembers(c.Request.Context(), society.ID, 10000, 0)
		if err != nil {
			respond.Internal(c, "Failed to load members", err)
			return
		}

		switch format {
		case "pdf":
			buf, err := export.MembersPDF(society, members)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			serveDownload(c, buf.Bytes(), "application/pdf",
				fmt.Sprintf("%s-members.pdf", slug(society.Name)))
		default:
			buf, err := export.MembersXLSX(society, members)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			serveDownload(c, buf.Bytes(),
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				fmt.Sprintf("%s-members.xlsx", slug(society.Name)))
		}
	}
}

func serveDownload(c *gin.Context, data []byte, contentType, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '-' }), "-"), "-")
}
