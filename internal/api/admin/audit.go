// audit.go exposes the audit trail to super admins with filtering over
// actor, action, resource type and time range.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// AuditHandlers serves the audit log.
type AuditHandlers struct {
	audit *repositories.AuditRepository
}

// NewAuditHandlers creates the audit handler set.
func NewAuditHandlers(db *sqlx.DB) *AuditHandlers {
	return &AuditHandlers{audit: repositories.NewAuditRepository(db)}
}

// ListAuditLogsHandler lists audit entries. Filters: ?user_id=, ?action=,
// ?resource_type=, ?start=RFC3339, ?end=RFC3339.
// GET /api/admin/audit-logs
func (h *AuditHandlers) ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters repositories.AuditFilters
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resource_type"); v != "" {
			filters.ResourceType = &v
		}
		if v := c.Query("start"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "start must be RFC3339")
				return
			}
			filters.StartDate = &t
		}
		if v := c.Query("end"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "end must be RFC3339")
				return
			}
			filters.EndDate = &t
		}

		page, perPage := pagination(c)
		logs, total, err := h.audit.ListAuditLogs(c.Request.Context(), filters, perPage, (page-1)*perPage)
		if err != nil {
			respond.Internal(c, "Failed to list audit logs", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"logs": logs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}
