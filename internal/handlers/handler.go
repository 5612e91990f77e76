package handlers

import (
	"context"
	"time"

	"chat_playground/internal/gate"
	"chat_playground/internal/logger"
	"chat_playground/internal/metrics"
	"chat_playground/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options are the HTTP-level settings taken from configuration.
type Options struct {
	// Production marks the token cookie Secure and enables HSTS.
	Production bool
	// Rules overrides gate.DefaultRules.
	Rules gate.Rules
	// StreamDelay is the pause between streamed reply chunks.
	StreamDelay time.Duration
	// AuthRatePerMinute and AuthBurst bound login/register attempts per client IP.
	AuthRatePerMinute int
	AuthBurst         int
	CORSOrigins       []string
	// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is honoured.
	// Empty means the client IP is always the peer address.
	TrustedProxies []string
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	gate     *gate.Gate
	opts     Options
	authIPs  *IPRateLimiter
}

// NewHandler constructs a new HTTP handler with dependencies. log may be nil.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.Rules == nil {
		opts.Rules = gate.DefaultRules()
	}
	if opts.AuthRatePerMinute <= 0 {
		opts.AuthRatePerMinute = 10
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 5
	}
	return &Handler{
		services: services,
		log:      log,
		gate:     gate.New(opts.Rules, services.Tokens),
		opts:     opts,
		authIPs:  NewIPRateLimiter(rate.Limit(float64(opts.AuthRatePerMinute)/60.0), opts.AuthBurst),
	}
}

// RunPruner drops idle per-IP auth buckets every tick until ctx is canceled.
func (h *Handler) RunPruner(ctx context.Context, tick time.Duration) {
	h.authIPs.Run(ctx, tick)
}

// InitRoutes builds and returns the Gin router with all routes registered.
// The gate runs for every route; public paths are listed in the gate rules.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(h.opts.TrustedProxies); err != nil {
		if h.log != nil {
			h.log.Errorw("invalid_trusted_proxies", "proxies", h.opts.TrustedProxies, "err", err)
		}
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		h.recoverer,
		h.requestID,
		h.requestLog,
		h.prometheus,
		securityHeaders(h.opts.Production),
		cors(h.opts.CORSOrigins),
		h.gateMiddleware,
	)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", h.health)

	api := router.Group("/api")
	h.registerAuthRoutes(api)
	h.registerChatRoutes(api)
	h.registerAdminRoutes(api)

	return router
}

func (h *Handler) registerAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.authIPs.Middleware, h.login)
		auth.POST("/register", h.authIPs.Middleware, h.register)
		auth.POST("/logout", h.logout)
		auth.GET("/me", h.me)
		auth.POST("/password", h.changePassword)
	}
}

func (h *Handler) registerChatRoutes(api *gin.RouterGroup) {
	chat := api.Group("/chat")
	{
		chat.GET("/rate-limit", h.checkRateLimit)
		chat.POST("/rate-limit", h.checkRateLimit)
		chat.POST("", h.sendChat)
		chat.GET("", h.chatHistory)
		chat.GET("/ws", h.chatWS)
	}
}

func (h *Handler) registerAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	{
		admin.GET("/check", h.adminCheck)
		admin.GET("/users", h.adminUsers)
		admin.GET("/chats", h.adminChats)
		admin.POST("/reset-password", h.adminResetPassword)
		admin.POST("/rate-limit", h.adminSetRateLimit)
		admin.GET("/rate-limit/:userId", h.adminRateLimitSnapshot)
	}
}
