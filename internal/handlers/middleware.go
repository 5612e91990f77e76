package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"chat_playground/internal/gate"
	"chat_playground/internal/metrics"
	"chat_playground/internal/models"

	"github.com/gin-gonic/gin"
)

// Identity headers forwarded to downstream handlers.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserIsAdmin = "X-User-Is-Admin"
	HeaderUserJSON    = "X-User-Json"

	tokenCookie = "token"
)

type identityKey struct{}

// WithIdentity returns ctx carrying the verified identity.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity set by the gate, if any.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// gateMiddleware authenticates and authorizes every request before routing
// reaches a handler. Denials abort with a JSON error.
func (h *Handler) gateMiddleware(c *gin.Context) {
	stripIdentityHeaders(c.Request.Header)

	cookie, _ := c.Cookie(tokenCookie)
	d := h.gate.Decide(c.Request.URL.Path, c.GetHeader("Authorization"), cookie)
	metrics.RecordGate(d.State.String())

	if !d.State.Allowed() {
		if h.log != nil {
			h.log.Infow("gate_"+d.State.String(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"user_id", d.Identity.ID,
				"err", d.Err)
		}
		c.AbortWithStatusJSON(d.State.Status(), gin.H{"error": d.State.Message()})
		return
	}

	if d.State == gate.AuthenticatedPass {
		h.injectIdentity(c, d.Identity)
		if d.ViaBearer {
			token, _ := gate.BearerToken(c.GetHeader("Authorization"))
			h.setTokenCookie(c, token)
		}
	}
	c.Next()
}

func (h *Handler) injectIdentity(c *gin.Context, id models.Identity) {
	hdr := c.Request.Header
	hdr.Set(HeaderUserID, strconv.Itoa(id.ID))
	hdr.Set(HeaderUserEmail, id.Email)
	hdr.Set(HeaderUserIsAdmin, strconv.FormatBool(id.IsAdmin))
	hdr.Set(HeaderUserJSON, string(id.Raw))

	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}

// stripIdentityHeaders drops client-supplied identity headers so only the
// gate can set them.
func stripIdentityHeaders(hdr http.Header) {
	for name := range hdr {
		if strings.HasPrefix(strings.ToLower(name), "x-user-") {
			hdr.Del(name)
		}
	}
}

// setTokenCookie stores the token cookie for the lifetime of the token.
func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	maxAge := int(h.services.TTL().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, token, maxAge, "/", "", h.opts.Production, true)
}

func (h *Handler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.opts.Production, true)
}

// currentIdentity returns the gate's identity or aborts with 401. Handlers on
// gated routes always find one; the check guards routes mounted without the gate.
func (h *Handler) currentIdentity(c *gin.Context) (models.Identity, bool) {
	id, ok := IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gate.Unauthenticated.Message()})
		return models.Identity{}, false
	}
	return id, true
}
