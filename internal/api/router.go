// Package api wires together all HTTP routes for the membership backend.
//
// Route grouping philosophy:
//   - /api/auth is unauthenticated by nature and sits behind a stricter rate
//     limit bucket than the rest of the API to blunt credential stuffing.
//   - Public discovery routes (society list/detail, published events, public
//     join forms) use optional authentication: anonymous callers see the
//     public subset, authenticated callers see what their roles allow.
//   - Everything that mutates society state goes through RequireSocietyRole,
//     which is the only place role semantics are interpreted.
//   - /api/admin requires the super-admin flag on top of authentication.
package api

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/societyhub/societyhub/internal/api/accounts"
	"github.com/societyhub/societyhub/internal/api/admin"
	"github.com/societyhub/societyhub/internal/api/email"
	"github.com/societyhub/societyhub/internal/api/events"
	"github.com/societyhub/societyhub/internal/api/forms"
	"github.com/societyhub/societyhub/internal/api/groups"
	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/api/societies"
	"github.com/societyhub/societyhub/internal/audit"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/jobs"
	"github.com/societyhub/societyhub/internal/middleware"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/storage"

	// Import storage backends to register them
	_ "github.com/societyhub/societyhub/internal/storage/azure"
	_ "github.com/societyhub/societyhub/internal/storage/gcs"
	_ "github.com/societyhub/societyhub/internal/storage/local"
	_ "github.com/societyhub/societyhub/internal/storage/s3"
)

// BackgroundServices holds background jobs and shared resources that must be
// stopped during graceful shutdown. The caller (cmd/server) invokes
// Shutdown() after the HTTP server has drained in-flight requests.
type BackgroundServices struct {
	credentialSweeper *jobs.CredentialSweeper
	auditShipper      audit.Shipper
	redisClient       *redis.Client
	cancel            context.CancelFunc
}

// Shutdown stops all background goroutines and closes shared connections.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.cancel != nil {
		bg.cancel()
	}
	if bg.credentialSweeper != nil {
		bg.credentialSweeper.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("audit shipper close failed", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter builds the Gin engine with the full middleware chain and route
// table. The returned BackgroundServices must be shut down by the caller.
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Uploads.MaxSizeBytes

	store, err := storage.NewStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("attachment storage initialized", "backend", cfg.Storage.DefaultBackend)

	mailer := notify.NewSMTPMailer(&cfg.Notifications)

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)

	// The audit repository uses sqlx for its dynamic filter queries.
	sqlxDB := sqlx.NewDb(db, "postgres")
	auditRepo := repositories.NewAuditRepository(sqlxDB)

	bg := &BackgroundServices{}

	var sweepCtx context.Context
	sweepCtx, bg.cancel = context.WithCancel(context.Background())
	bg.credentialSweeper = jobs.NewCredentialSweeper(otpRepo, tokenRepo, cfg.Auth.CredentialSweepHours)
	go bg.credentialSweeper.Start(sweepCtx)

	auditMW := middleware.AuditMiddleware(auditRepo)
	if cfg.Audit.ShipperConfigFile != "" {
		configs, err := audit.LoadShipperConfigs(cfg.Audit.ShipperConfigFile)
		if err != nil {
			return nil, nil, err
		}
		shipper, err := audit.NewMultiShipper(configs)
		if err != nil {
			return nil, nil, err
		}
		bg.auditShipper = shipper
		auditMW = middleware.AuditMiddlewareWithShipper(auditRepo, shipper, &cfg.Audit)
	}

	// Global chain. Metrics comes after request id so the matched route is
	// known when the status is recorded.
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())

	if cfg.Security.RateLimiting.Enabled {
		bg.redisClient = middleware.NewRedisClient(&cfg.Redis)
		router.Use(middleware.RateLimitMiddleware(bg.redisClient, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			Burst:             cfg.Security.RateLimiting.Burst,
		}, "api"))
	}

	authRequired := middleware.AuthMiddleware(cfg, userRepo)
	authOptional := middleware.OptionalAuthMiddleware(cfg, userRepo)

	authH := accounts.NewAuthHandlers(cfg, db, mailer)
	profileH := accounts.NewProfileHandlers(db)
	societyH := societies.NewHandlers(cfg, db)
	groupH := groups.NewHandlers(cfg, db)
	formH := forms.NewHandlers(cfg, db, store, mailer)
	eventH := events.NewHandlers(cfg, db, store, mailer)
	emailH := email.NewHandlers(cfg, db, mailer)
	adminRequestH := admin.NewRequestHandlers(cfg, db, mailer)
	adminUserH := admin.NewUserHandlers(cfg, db)
	adminAuditH := admin.NewAuditHandlers(sqlxDB)
	adminStatsH := admin.NewStatsHandlers(db, sqlxDB)

	registerHealthRoutes(router, db)

	// Credential endpoints get their own, stricter rate bucket.
	authGroup := router.Group("/api/auth")
	if cfg.Security.RateLimiting.Enabled {
		authGroup.Use(middleware.RateLimitMiddleware(bg.redisClient, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.AuthRequestsPerMinute,
			Burst:             cfg.Security.RateLimiting.AuthBurst,
		}, "auth"))
	}
	{
		authGroup.POST("/signup", authH.SignupHandler())
		authGroup.POST("/verify-otp", authH.VerifyOTPHandler())
		authGroup.POST("/resend-otp", authH.ResendOTPHandler())
		authGroup.POST("/login", authH.LoginHandler())
		authGroup.POST("/refresh", authH.RefreshHandler())
		authGroup.POST("/logout", authH.LogoutHandler())
		authGroup.POST("/forgot-password", authH.ForgotPasswordHandler())
		authGroup.POST("/reset-password", authH.ResetPasswordHandler())
	}

	user := router.Group("/api/user", authRequired)
	{
		user.GET("/me", profileH.GetMeHandler())
		user.PUT("/me", profileH.UpdateMeHandler())
		user.GET("/societies", profileH.MySocietiesHandler())
		user.GET("/requests", profileH.MyRequestsHandler())
	}

	// Public discovery surface. Anonymous callers see active societies,
	// public join forms and published events; handlers narrow further based
	// on the optional identity.
	public := router.Group("/api/society", authOptional)
	{
		public.GET("", societyH.ListSocietiesHandler())
		public.GET("/:societyID", societyH.GetSocietyHandler())
		public.GET("/:societyID/join-form", formH.GetJoinFormHandler())
		public.GET("/:societyID/events", eventH.ListEventsHandler())
		public.GET("/:societyID/events/:eventID", eventH.GetEventHandler())
	}

	society := router.Group("/api/society", authRequired, auditMW)
	{
		society.POST("/request", societyH.RequestSocietyHandler())

		// Society metadata. Update is open to the general secretary, the
		// lifecycle operations are president or super-admin matters.
		society.PUT("/:societyID", requireSociety(roleRepo, groupRepo, models.RoleGeneralSecretary), societyH.UpdateSocietyHandler())
		society.DELETE("/:societyID", requireSociety(roleRepo, groupRepo), societyH.DeleteSocietyHandler())
		society.POST("/:societyID/suspend", middleware.RequireSuperAdmin(), societyH.SetStatusHandler(models.SocietySuspended))
		society.POST("/:societyID/activate", middleware.RequireSuperAdmin(), societyH.SetStatusHandler(models.SocietyActive))

		// Membership roster.
		anyMember := requireSociety(roleRepo, groupRepo, models.AllRoles...)
		manageMembers := requireSociety(roleRepo, groupRepo, models.RoleGeneralSecretary)
		society.GET("/:societyID/members", anyMember, societyH.ListMembersHandler())
		society.POST("/:societyID/members", manageMembers, societyH.AddMemberHandler())
		society.PUT("/:societyID/members/:memberID", manageMembers, societyH.UpdateMemberRoleHandler())
		society.DELETE("/:societyID/members/:memberID", manageMembers, societyH.RemoveMemberHandler())
		society.POST("/:societyID/leadership", manageMembers, societyH.AssignLeadershipHandler())
		society.DELETE("/:societyID/leadership", manageMembers, societyH.RemoveLeadershipHandler())
		society.POST("/:societyID/president", requireSociety(roleRepo, groupRepo), societyH.TransferPresidencyHandler())

		exportRoles := requireSociety(roleRepo, groupRepo, models.RoleGeneralSecretary, models.RoleFinanceManager)
		society.GET("/:societyID/members/export", exportRoles, societyH.ExportMembersHandler("xlsx"))
		society.GET("/:societyID/members/export-pdf", exportRoles, societyH.ExportMembersHandler("pdf"))

		// Groups (teams) within a society.
		society.POST("/:societyID/groups", manageMembers, groupH.CreateGroupHandler())
		society.GET("/:societyID/groups", anyMember, groupH.ListGroupsHandler())

		// Join forms and join requests.
		society.POST("/:societyID/join-form", manageMembers, formH.CreateJoinFormHandler())
		society.GET("/:societyID/forms", manageMembers, formH.ListFormsHandler())
		society.PUT("/:societyID/join-form/:formID", manageMembers, formH.UpdateJoinFormHandler())
		society.DELETE("/:societyID/join-form/:formID", manageMembers, formH.DeactivateJoinFormHandler())
		society.POST("/:societyID/join-form/submit", formH.SubmitJoinRequestHandler())
		society.GET("/:societyID/requests", manageMembers, formH.ListRequestsHandler())
		society.PUT("/:societyID/requests/:requestID", manageMembers, formH.ReviewRequestHandler())
		society.GET("/:societyID/requests/attachment", manageMembers, formH.AttachmentURLHandler())
		society.GET("/:societyID/requests/export", exportRoles, formH.ExportRequestsHandler("xlsx"))
		society.GET("/:societyID/requests/export-pdf", exportRoles, formH.ExportRequestsHandler("pdf"))

		// Events and registrations.
		manageEvents := requireSociety(roleRepo, groupRepo, models.RoleEventManager, models.RoleGeneralSecretary)
		society.POST("/:societyID/events", manageEvents, eventH.CreateEventHandler())
		society.PUT("/:societyID/events/:eventID", manageEvents, eventH.UpdateEventHandler())
		society.POST("/:societyID/events/:eventID/publish", manageEvents, eventH.PublishEventHandler())
		society.POST("/:societyID/events/:eventID/cancel", manageEvents, eventH.CancelEventHandler())
		society.POST("/:societyID/events/:eventID/form", manageEvents, eventH.CreateFormHandler())
		society.PUT("/:societyID/events/:eventID/form/:formID", manageEvents, eventH.UpdateFormHandler())
		society.POST("/:societyID/events/:eventID/register", eventH.RegisterHandler())
		society.GET("/:societyID/events/:eventID/registrations", manageEvents, eventH.ListRegistrationsHandler())
		society.PUT("/:societyID/events/:eventID/registrations/:registrationID", manageEvents, eventH.ReviewRegistrationHandler())
		society.GET("/:societyID/events/:eventID/registrations/export", manageEvents, eventH.ExportRegistrationsHandler("xlsx"))
		society.GET("/:societyID/events/:eventID/registrations/export-pdf", manageEvents, eventH.ExportRegistrationsHandler("pdf"))

	}

	// Bulk email to the membership. The handler resolves targets from the
	// society path parameter, so the RBAC check scopes to it directly.
	emailGroup := router.Group("/api/email", authRequired, auditMW)
	{
		emailGroup.POST("/:societyID", requireSociety(roleRepo, groupRepo, models.RoleGeneralSecretary), emailH.SendBulkHandler())
	}

	// Group-scoped member management: route authorization resolves the
	// owning society through the group row, so leads only pass for their
	// own group.
	groupScoped := router.Group("/api/groups", authRequired, auditMW)
	{
		leads := requireGroup(roleRepo, groupRepo, models.RoleLead, models.RoleCoLead, models.RoleGeneralSecretary)
		groupScoped.PUT("/:groupID", requireGroup(roleRepo, groupRepo, models.RoleGeneralSecretary), groupH.UpdateGroupHandler())
		groupScoped.DELETE("/:groupID", requireGroup(roleRepo, groupRepo, models.RoleGeneralSecretary), groupH.DeleteGroupHandler())
		groupScoped.GET("/:groupID/members", leads, groupH.ListGroupMembersHandler())
		groupScoped.POST("/:groupID/members", leads, groupH.AddGroupMemberHandler())
		groupScoped.DELETE("/:groupID/members/:userID", leads, groupH.RemoveGroupMemberHandler())
	}

	adminGroup := router.Group("/api/admin", authRequired, middleware.RequireSuperAdmin(), auditMW)
	{
		adminGroup.GET("/society-requests", adminRequestH.ListRequestsHandler())
		adminGroup.POST("/society-requests/:requestID/approve", adminRequestH.ApproveRequestHandler())
		adminGroup.POST("/society-requests/:requestID/reject", adminRequestH.RejectRequestHandler())
		adminGroup.GET("/users", adminUserH.ListUsersHandler())
		adminGroup.POST("/users/:userID/suspend", adminUserH.SuspendUserHandler())
		adminGroup.POST("/users/:userID/activate", adminUserH.ActivateUserHandler())
		adminGroup.GET("/audit-logs", adminAuditH.ListAuditLogsHandler())
		adminGroup.GET("/stats", adminStatsH.GetStatsHandler())
	}

	// The local storage backend issues URLs under /api/files/; cloud
	// backends presign their own URLs and never hit this route.
	router.GET("/api/files/*key", authRequired, serveAttachment(store))

	router.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "Route not found")
	})

	return router, bg, nil
}

func requireSociety(roleRepo *repositories.RoleRepository, groupRepo *repositories.GroupRepository, allowed ...models.Role) gin.HandlerFunc {
	return middleware.RequireSocietyRole(middleware.ScopeSociety, roleRepo, groupRepo, allowed...)
}

func requireGroup(roleRepo *repositories.RoleRepository, groupRepo *repositories.GroupRepository, allowed ...models.Role) gin.HandlerFunc {
	return middleware.RequireSocietyRole(middleware.ScopeGroup, roleRepo, groupRepo, allowed...)
}

func registerHealthRoutes(router *gin.Engine, db *sql.DB) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	})
}

// serveAttachment streams a stored attachment. Only meaningful for the local
// backend; the content type is re-derived from the file extension since the
// local backend does not persist it.
func serveAttachment(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if len(key) > 0 && key[0] == '/' {
			key = key[1:]
		}
		reader, err := store.Get(c.Request.Context(), key)
		if err != nil {
			respond.Error(c, http.StatusNotFound, "Attachment not found")
			return
		}
		defer reader.Close()

		contentType := mime.TypeByExtension(filepath.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			slog.Warn("attachment stream interrupted", "key", key, "error", err)
		}
	}
}
