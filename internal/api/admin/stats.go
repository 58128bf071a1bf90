// stats.go serves the platform overview counters for the admin dashboard.
package admin

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// StatsHandlers serves platform counters.
type StatsHandlers struct {
	users     *repositories.UserRepository
	societies *repositories.SocietyRepository
	audit     *repositories.AuditRepository
}

// NewStatsHandlers creates the stats handler set.
func NewStatsHandlers(db *sql.DB, auditDB *sqlx.DB) *StatsHandlers {
	return &StatsHandlers{
		users:     repositories.NewUserRepository(db),
		societies: repositories.NewSocietyRepository(db),
		audit:     repositories.NewAuditRepository(auditDB),
	}
}

// GetStatsHandler returns platform totals: users, societies, pending
// founding requests and API activity over the last 24 hours.
// GET /api/admin/stats
func (h *StatsHandlers) GetStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		users, err := h.users.CountUsers(ctx)
		if err != nil {
			respond.Internal(c, "Failed to load stats", err)
			return
		}
		societies, err := h.societies.Count(ctx)
		if err != nil {
			respond.Internal(c, "Failed to load stats", err)
			return
		}
		pending, err := h.societies.ListRequests(ctx, models.RequestPending, 1000, 0)
		if err != nil {
			respond.Internal(c, "Failed to load stats", err)
			return
		}
		activity, err := h.audit.CountSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			respond.Internal(c, "Failed to load stats", err)
			return
		}

		respond.OK(c, http.StatusOK, "", gin.H{
			"stats": gin.H{
				"users":             users,
				"societies":         societies,
				"pending_requests":  len(pending),
				"requests_last_24h": activity,
			},
		})
	}
}
