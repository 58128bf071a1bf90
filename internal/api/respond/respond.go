// Package respond implements the JSON envelope every endpoint speaks:
// {"success": true, "message": ..., ...} on the happy path and
// {"success": false, "message": ...} on errors. Outside release mode an
// "error" field carries the underlying detail; production responses never
// leak internals.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/services"
)

// OK writes a success envelope. Extra payload keys are merged in beside
// success and message.
func OK(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error writes a failure envelope and aborts the handler chain.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// Internal logs the underlying error and writes a 500. The detail is exposed
// only outside release mode.
func Internal(c *gin.Context, message string, err error) {
	slog.Error(message, "path", c.FullPath(), "error", err)
	body := gin.H{"success": false, "message": message}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// ServiceError maps service and repository sentinels onto HTTP statuses.
// Anything unrecognized is treated as an internal failure.
func ServiceError(c *gin.Context, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSocietyNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrFormNotFound),
		errors.Is(err, services.ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSocietyNotActive),
		errors.Is(err, services.ErrEventNotOpen):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrTeamMismatch):
		Error(c, http.StatusBadRequest, "Selected team does not belong to this society.")
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNotLeadershipRole),
		errors.Is(err, repositories.ErrAlreadyProcessed):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrAlreadyMember),
		errors.Is(err, repositories.ErrPendingExists),
		errors.Is(err, repositories.ErrLeadExists),
		errors.Is(err, repositories.ErrDuplicateName):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, repositories.ErrNotMember):
		Error(c, http.StatusNotFound, err.Error())
	default:
		Internal(c, "Something went wrong", err)
	}
}
