// rbac.go implements role-based authorization middleware.
//
// Roles are checked against the database at request time rather than being
// embedded in the JWT. This is a deliberate design choice: when a member is
// promoted or demoted, the change takes effect on their next request without
// needing to invalidate or reissue their token. Embedding roles in the JWT
// would require token rotation on every role change, which is operationally
// expensive and error-prone.
//
// This file is the single place where role semantics live. Handlers read the
// resolved ids from the request context and never re-implement president or
// leadership checks themselves.

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// RoleScope says which route parameter carries the resource being protected.
type RoleScope string

const (
	// ScopeSociety protects routes keyed by :societyID.
	ScopeSociety RoleScope = "SOCIETY"
	// ScopeGroup protects routes keyed by :groupID; the owning society is
	// resolved from the group row.
	ScopeGroup RoleScope = "GROUP"
)

// RequireSocietyRole authorizes the caller against a society's role rows.
//
// Super admins always pass. A PRESIDENT passes any check for their society.
// Otherwise the caller's role must be one of allowed, and for group-scoped
// routes a LEAD or CO-LEAD additionally only passes for the group their role
// row is bound to.
//
// On success the request context carries "society_id" (and "group_id" for
// group scope) plus "caller_role" for the handler.
func RequireSocietyRole(scope RoleScope, roleRepo *repositories.RoleRepository, groupRepo *repositories.GroupRepository, allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "User not authenticated",
			})
			return
		}

		societyID, groupID, ok := resolveScope(c, scope, groupRepo)
		if !ok {
			return
		}

		if c.GetBool("is_super_admin") {
			c.Set("caller_role", models.RolePresident)
			c.Next()
			return
		}

		role, err := roleRepo.GetRole(c.Request.Context(), userID, societyID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to check society membership",
			})
			return
		}
		if role == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not a member of this society",
			})
			return
		}

		if !rolePasses(role, scope, groupID, allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Requires role: " + roleNames(allowed),
			})
			return
		}

		c.Set("caller_role", role.Role)
		c.Next()
	}
}

// RequireSuperAdmin gates the platform-admin surface.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_super_admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Super admin access required",
			})
			return
		}
		c.Next()
	}
}

// resolveScope extracts the target society (and group) from the route and
// stores both in the request context. Aborts on bad input.
func resolveScope(c *gin.Context, scope RoleScope, groupRepo *repositories.GroupRepository) (societyID, groupID string, ok bool) {
	switch scope {
	case ScopeGroup:
		groupID = c.Param("groupID")
		if _, err := uuid.Parse(groupID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid group id",
			})
			return "", "", false
		}

		group, err := groupRepo.GetByID(c.Request.Context(), groupID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to load group",
			})
			return "", "", false
		}
		if group == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Group not found",
			})
			return "", "", false
		}

		c.Set("group", group)
		c.Set("group_id", group.ID)
		c.Set("society_id", group.SocietyID)
		return group.SocietyID, group.ID, true

	default:
		societyID = c.Param("societyID")
		if _, err := uuid.Parse(societyID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid society id",
			})
			return "", "", false
		}
		c.Set("society_id", societyID)
		return societyID, "", true
	}
}

// rolePasses applies the role matrix to one role row. A PRESIDENT passes
// everything in their society. LEAD and CO-LEAD carry weight only inside the
// group their role row names, so on group-scoped routes they must match the
// target group.
func rolePasses(row *models.SocietyUserRole, scope RoleScope, groupID string, allowed []models.Role) bool {
	if row.Role == models.RolePresident {
		return true
	}

	for _, want := range allowed {
		if row.Role != want {
			continue
		}
		if scope == ScopeGroup && row.Role.GroupScoped() {
			if row.GroupID == nil || *row.GroupID != groupID {
				return false
			}
		}
		return true
	}
	return false
}

func roleNames(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
