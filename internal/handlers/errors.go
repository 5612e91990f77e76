package handlers

import (
	"errors"
	"net/http"

	"chat_playground/internal/service"

	"github.com/gin-gonic/gin"
)

// Client-facing messages. Internal error details are only logged.
const (
	errMessageInternal     = "Internal server error"
	errMessageRateLimited  = "Rate limit exceeded"
	errMessageInvalidInput = "Invalid input"
)

// statusFor maps domain errors to an HTTP status and a safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, errMessageRateLimited
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrUserExists):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, errMessageInvalidInput
	default:
		return http.StatusInternalServerError, errMessageInternal
	}
}

// respondError writes the mapped error. Server errors are logged at error
// level, the rest at info.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	status, msg := statusFor(err)
	if h.log != nil {
		fields := append([]interface{}{"err", err, "status", status}, kv...)
		if status >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bindJSONOrBadRequest binds the body into dst and writes a 400 on failure.
// Returns false if the request was already handled.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any, logKey string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow(logKey, "err", err)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errMessageInvalidInput})
		return false
	}
	return true
}
