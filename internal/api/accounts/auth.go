// Package accounts implements the authentication and profile endpoints:
// signup with emailed OTP verification, login with lockout, the rotating
// refresh-token session surface and password reset.
package accounts

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/telemetry"
)

// Generic credential failure message. Never distinguish "no such user" from
// "wrong password" — that distinction is an account-enumeration oracle.
const invalidCredentials = "Invalid email or password"

// AuthHandlers implements /api/auth.
type AuthHandlers struct {
	cfg    *config.Config
	users  *repositories.UserRepository
	otps   *repositories.OTPRepository
	tokens *repositories.TokenRepository
	mailer notify.Mailer
}

// NewAuthHandlers creates the auth handler set.
func NewAuthHandlers(cfg *config.Config, db *sql.DB, mailer notify.Mailer) *AuthHandlers {
	return &AuthHandlers{
		cfg:    cfg,
		users:  repositories.NewUserRepository(db),
		otps:   repositories.NewOTPRepository(db),
		tokens: repositories.NewTokenRepository(db),
		mailer: mailer,
	}
}

// SignupRequest is the payload for POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler registers an unverified account and emails a signup OTP.
// POST /api/auth/signup
func (h *AuthHandlers) SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		if !auth.ValidEmail(req.Email) {
			telemetry.SignupsTotal.WithLabelValues("invalid").Inc()
			respond.Error(c, http.StatusBadRequest, "Invalid email address")
			return
		}
		if err := auth.CheckPasswordPolicy(req.Password); err != nil {
			telemetry.SignupsTotal.WithLabelValues("invalid").Inc()
			respond.Error(c, http.StatusBadRequest, err.Error())
			return
		}

		existing, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to check existing account", err)
			return
		}
		if existing != nil {
			if existing.EmailVerified {
				telemetry.SignupsTotal.WithLabelValues("conflict").Inc()
				respond.Error(c, http.StatusConflict, "An account with this email already exists")
				return
			}
			// A stale unverified signup does not squat the address.
			if err := h.users.DeleteUnverifiedByEmail(c.Request.Context(), req.Email); err != nil {
				respond.Internal(c, "Failed to replace unverified account", err)
				return
			}
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			respond.Internal(c, "Failed to process password", err)
			return
		}

		user := &models.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        req.Email,
			PasswordHash: hash,
			Status:       models.UserInactive,
		}
		if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
			respond.Internal(c, "Failed to create account", err)
			return
		}

		if err := h.issueOTP(c, user.Name, user.Email, models.OTPSignup, "verify your email"); err != nil {
			respond.Internal(c, "Failed to issue verification code", err)
			return
		}

		telemetry.SignupsTotal.WithLabelValues("created").Inc()
		respond.OK(c, http.StatusCreated, "Signup successful. Check your email for the verification code.", gin.H{
			"email":                user.Email,
			"requiresVerification": true,
		})
	}
}

// OTPRequest is the payload for POST /api/auth/verify-otp.
type OTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTPHandler confirms a signup code, activates the account and starts a
// session.
// POST /api/auth/verify-otp
func (h *AuthHandlers) VerifyOTPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		if !h.consumeOTP(c, req.Email, req.OTP, models.OTPSignup) {
			return
		}

		user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to load account", err)
			return
		}
		if user == nil {
			respond.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		if err := h.users.MarkEmailVerified(c.Request.Context(), user.ID); err != nil {
			respond.Internal(c, "Failed to activate account", err)
			return
		}

		pair, err := h.issueTokenPair(c, user.ID, user.Email)
		if err != nil {
			respond.Internal(c, "Failed to start session", err)
			return
		}
		respond.OK(c, http.StatusOK, "Email verified", pair)
	}
}

// ResendRequest is the payload for POST /api/auth/resend-otp.
type ResendRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResendOTPHandler reissues a signup verification code.
// POST /api/auth/resend-otp
func (h *AuthHandlers) ResendOTPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to load account", err)
			return
		}
		if user == nil {
			respond.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		if user.EmailVerified {
			respond.Error(c, http.StatusBadRequest, "Email is already verified")
			return
		}

		if err := h.issueOTP(c, user.Name, user.Email, models.OTPSignup, "verify your email"); err != nil {
			respond.Internal(c, "Failed to issue verification code", err)
			return
		}
		respond.OK(c, http.StatusOK, "A new verification code has been sent", nil)
	}
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates a verified account and starts a session. Five
// consecutive failures lock the account for the configured window.
// POST /api/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to load account", err)
			return
		}
		if user == nil {
			respond.Error(c, http.StatusUnauthorized, invalidCredentials)
			return
		}
		if !user.EmailVerified {
			telemetry.LoginsTotal.WithLabelValues("unverified").Inc()
			respond.Error(c, http.StatusForbidden, "Email not verified. Complete signup verification first.")
			return
		}
		if user.Status == models.UserSuspended {
			respond.Error(c, http.StatusForbidden, "Account suspended")
			return
		}
		if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
			telemetry.LoginsTotal.WithLabelValues("locked").Inc()
			respond.Error(c, http.StatusForbidden, "Account is temporarily locked.")
			return
		}

		if !auth.VerifyPassword(req.Password, user.PasswordHash) {
			attempts, ferr := h.users.RecordLoginFailure(c.Request.Context(), user.ID,
				h.cfg.Auth.MaxLoginFailures, h.cfg.Auth.LockoutDuration)
			if ferr != nil {
				respond.Internal(c, "Failed to record login attempt", ferr)
				return
			}
			if attempts >= h.cfg.Auth.MaxLoginFailures {
				telemetry.LoginsTotal.WithLabelValues("locked").Inc()
				respond.Error(c, http.StatusForbidden, "Account is temporarily locked.")
				return
			}
			telemetry.LoginsTotal.WithLabelValues("bad_credentials").Inc()
			respond.Error(c, http.StatusUnauthorized, invalidCredentials)
			return
		}

		if err := h.users.ResetLoginFailures(c.Request.Context(), user.ID); err != nil {
			respond.Internal(c, "Failed to reset login counter", err)
			return
		}

		pair, err := h.issueTokenPair(c, user.ID, user.Email)
		if err != nil {
			respond.Internal(c, "Failed to start session", err)
			return
		}
		telemetry.LoginsTotal.WithLabelValues("success").Inc()
		respond.OK(c, http.StatusOK, "Login successful", pair)
	}
}

// RefreshRequest is the payload for POST /api/auth/refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshHandler rotates the presented refresh token and returns a new pair.
// A revoked, expired or unknown token is rejected; rotation means a replayed
// token can never mint a second session.
// POST /api/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		next, err := auth.NewRefreshToken(h.cfg.Auth.RefreshTokenTTL)
		if err != nil {
			respond.Internal(c, "Failed to generate token", err)
			return
		}

		userID, err := h.tokens.Rotate(c.Request.Context(),
			auth.HashRefreshToken(req.RefreshToken),
			auth.HashRefreshToken(next.Raw),
			next.ExpiresAt,
		)
		if err == repositories.ErrTokenInvalid {
			telemetry.TokenRotationsTotal.WithLabelValues("invalid").Inc()
			respond.Error(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		if err != nil {
			respond.Internal(c, "Failed to refresh session", err)
			return
		}
		telemetry.TokenRotationsTotal.WithLabelValues("success").Inc()

		user, err := h.users.GetUserByID(c.Request.Context(), userID)
		if err != nil || user == nil {
			respond.Internal(c, "Failed to load account", err)
			return
		}

		access, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.AccessTokenTTL)
		if err != nil {
			respond.Internal(c, "Failed to generate token", err)
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{
			"access_token":  access,
			"refresh_token": next.Raw,
			"expires_in":    int(h.cfg.Auth.AccessTokenTTL.Seconds()),
		})
	}
}

// LogoutHandler revokes the presented refresh token. Idempotent: an already
// revoked or unknown token still yields 200.
// POST /api/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		if err := h.tokens.Revoke(c.Request.Context(), auth.HashRefreshToken(req.RefreshToken)); err != nil {
			respond.Internal(c, "Failed to log out", err)
			return
		}
		respond.OK(c, http.StatusOK, "Logged out", nil)
	}
}

// ForgotPasswordHandler issues a password-reset code. The response is the
// same whether or not the email exists.
// POST /api/auth/forgot-password
func (h *AuthHandlers) ForgotPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to process request", err)
			return
		}
		if user != nil && user.EmailVerified {
			if err := h.issueOTP(c, user.Name, user.Email, models.OTPPasswordReset, "reset your password"); err != nil {
				respond.Internal(c, "Failed to issue reset code", err)
				return
			}
		}
		respond.OK(c, http.StatusOK, "If the email is registered, a reset code has been sent", nil)
	}
}

// ResetPasswordRequest is the payload for POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPasswordHandler consumes a reset code, replaces the password and
// revokes every outstanding refresh token for the account.
// POST /api/auth/reset-password
func (h *AuthHandlers) ResetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		if err := auth.CheckPasswordPolicy(req.NewPassword); err != nil {
			respond.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		if !h.consumeOTP(c, req.Email, req.OTP, models.OTPPasswordReset) {
			return
		}

		user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to load account", err)
			return
		}
		if user == nil {
			respond.Error(c, http.StatusNotFound, "Account not found")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword, h.cfg.Auth.BcryptCost)
		if err != nil {
			respond.Internal(c, "Failed to process password", err)
			return
		}
		if err := h.users.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
			respond.Internal(c, "Failed to update password", err)
			return
		}
		// Every open session dies with the old password.
		if err := h.tokens.RevokeAllForUser(c.Request.Context(), user.ID); err != nil {
			respond.Internal(c, "Failed to revoke sessions", err)
			return
		}
		respond.OK(c, http.StatusOK, "Password updated. Log in with your new password.", nil)
	}
}

// issueOTP generates, stores and emails a code for the given purpose.
func (h *AuthHandlers) issueOTP(c *gin.Context, name, email string, otpType models.OTPType, purpose string) error {
	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return err
	}

	ttl := h.cfg.Auth.OTPTTL
	if ttl == 0 {
		ttl = auth.OTPTTL
	}
	otp := &models.OTP{
		Email:     email,
		OTPHash:   hash,
		Type:      otpType,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.otps.Create(c.Request.Context(), otp); err != nil {
		return err
	}

	subject, body := notify.OTPMessage(name, code, purpose, ttl)
	notify.SendDetached(h.mailer, "otp", []string{email}, subject, body)
	return nil
}

// consumeOTP verifies a submitted code. On failure it writes the error
// response and returns false; the guess counter and invalidate-on-abuse rules
// live here.
func (h *AuthHandlers) consumeOTP(c *gin.Context, email, code string, otpType models.OTPType) bool {
	otp, err := h.otps.GetLatest(c.Request.Context(), email, otpType)
	if err != nil {
		respond.Internal(c, "Failed to verify code", err)
		return false
	}
	if otp == nil {
		telemetry.OTPVerificationsTotal.WithLabelValues("mismatch").Inc()
		respond.Error(c, http.StatusBadRequest, "Invalid or expired code")
		return false
	}

	attempts, err := h.otps.IncrementAttempts(c.Request.Context(), otp.ID)
	if err != nil {
		respond.Internal(c, "Failed to verify code", err)
		return false
	}
	maxAttempts := h.cfg.Auth.OTPMaxAttempts
	if maxAttempts == 0 {
		maxAttempts = auth.OTPMaxAttempts
	}
	if attempts > maxAttempts {
		if err := h.otps.InvalidateAll(c.Request.Context(), email); err != nil {
			respond.Internal(c, "Failed to verify code", err)
			return false
		}
		telemetry.OTPVerificationsTotal.WithLabelValues("exhausted").Inc()
		respond.Error(c, http.StatusBadRequest, "Too many attempts. Request a new code.")
		return false
	}

	if otp.Expired(time.Now()) {
		telemetry.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		respond.Error(c, http.StatusBadRequest, "Invalid or expired code")
		return false
	}
	if !auth.VerifyOTP(code, otp.OTPHash) {
		telemetry.OTPVerificationsTotal.WithLabelValues("mismatch").Inc()
		respond.Error(c, http.StatusBadRequest, "Invalid or expired code")
		return false
	}

	if err := h.otps.MarkVerified(c.Request.Context(), otp.ID); err != nil {
		respond.Internal(c, "Failed to verify code", err)
		return false
	}
	telemetry.OTPVerificationsTotal.WithLabelValues("success").Inc()
	return true
}

// issueTokenPair mints an access JWT plus a stored refresh token.
func (h *AuthHandlers) issueTokenPair(c *gin.Context, userID, email string) (gin.H, error) {
	access, err := auth.GenerateJWT(userID, email, h.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewRefreshToken(h.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	if err := h.tokens.Store(c.Request.Context(), userID,
		auth.HashRefreshToken(refresh.Raw), refresh.ExpiresAt); err != nil {
		return nil, err
	}
	return gin.H{
		"access_token":  access,
		"refresh_token": refresh.Raw,
		"expires_in":    int(h.cfg.Auth.AccessTokenTTL.Seconds()),
	}, nil
}
