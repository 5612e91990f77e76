package handlers

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"chat_playground/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
)

// recoverer turns a panic into a JSON 500 and logs the stack.
func (h *Handler) recoverer(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			if h.log != nil {
				h.log.Errorw("panic_recovered",
					"request_id", c.GetString(ctxRequestID),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errMessageInternal})
		}
	}()
	c.Next()
}

// requestID reuses a sane client X-Request-Id or generates a UUID.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(HeaderRequestID)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(HeaderRequestID, id)
	c.Next()
}

// requestLog logs each request once it completes.
func (h *Handler) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	if h.log == nil {
		return
	}
	h.log.Infow("request",
		"request_id", c.GetString(ctxRequestID),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
		"size", c.Writer.Size())
}

// prometheus records request duration and count, except for /metrics itself.
func (h *Handler) prometheus(c *gin.Context) {
	start := time.Now()
	c.Next()
	if c.Request.URL.Path == "/metrics" {
		return
	}
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	metrics.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
}

// securityHeaders sets common security response headers; hsts adds Strict-Transport-Security.
func securityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if hsts {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

var (
	corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	corsAllowedHeaders = []string{"Accept", "Authorization", "Content-Type"}
)

// cors answers preflights and sets CORS headers for listed origins. With no
// origins it does nothing, keeping the API same-origin only.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", strings.Join(corsAllowedMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
