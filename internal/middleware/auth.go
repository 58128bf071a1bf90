// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and audit logging.
//
// Middleware ordering matters and is enforced by the router wiring in
// internal/api:
//
//	Security → RequestID → Metrics → RateLimit → Auth → RBAC → Audit → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB
// work. Auth populates the user identity; RBAC reads from that context. Audit
// logging runs after RBAC so only authorized mutations are recorded as
// successful actions.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// AuthMiddleware validates the Bearer access token and loads the account.
//
// On success the request context carries "user" (*models.User), "user_id",
// "user_email" and "is_super_admin". Suspended accounts are rejected even
// with a valid token so suspension takes effect at the next request, not at
// token expiry.
func AuthMiddleware(cfg *config.Config, userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "User not found",
			})
			return
		}
		if user.Status == models.UserSuspended {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Account is suspended",
			})
			return
		}

		setCallerContext(c, cfg, user)
		c.Next()
	}
}

// OptionalAuthMiddleware populates the caller context when a valid Bearer
// token is present but never rejects the request. Used on public listing
// endpoints that render extra detail for signed-in members.
func OptionalAuthMiddleware(cfg *config.Config, userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			c.Next()
			return
		}

		if claims, err := auth.ValidateJWT(token); err == nil {
			user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
			if err == nil && user != nil && user.Status != models.UserSuspended {
				setCallerContext(c, cfg, user)
			}
		}
		c.Next()
	}
}

// bearerToken extracts the Bearer token, aborting with 401 when the header is
// missing or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Missing authorization header",
		})
		return "", false
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Authorization header must start with 'Bearer '",
		})
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Authorization token is empty",
		})
		return "", false
	}

	return token, true
}

func setCallerContext(c *gin.Context, cfg *config.Config, user *models.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("user_email", user.Email)
	c.Set("is_super_admin", isSuperAdmin(cfg, user))
}

// isSuperAdmin checks the account flag plus the configured bootstrap list, so
// the first administrators can be designated before any DB row says so.
func isSuperAdmin(cfg *config.Config, user *models.User) bool {
	if user.IsSuperAdmin {
		return true
	}
	for _, email := range cfg.Auth.SuperAdminEmails {
		if strings.EqualFold(email, user.Email) {
			return true
		}
	}
	return false
}
