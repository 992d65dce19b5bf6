package router

import (
	"net/http"
	"time"

	"github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/internal/handler"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"github.com/Payphone-Digital/contacts-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler    *handler.AuthHandler
	contactHandler *handler.ContactHandler
	userHandler    *handler.UserHandler
	healthHandler  *handler.HealthHandler

	authMw  *middleware.AuthMiddleware
	limiter ratelimit.Limiter
	metrics metrics.Recorder
	scrape  http.Handler
	Config  *config.Config
}

// NewRouter wires the handlers. limiter may be nil (rate limiting off) and
// scrape may be nil (no /metrics endpoint).
func NewRouter(
	auth *handler.AuthHandler,
	contact *handler.ContactHandler,
	user *handler.UserHandler,
	health *handler.HealthHandler,

	authMw *middleware.AuthMiddleware,
	limiter ratelimit.Limiter,
	rec metrics.Recorder,
	scrape http.Handler,
	config *config.Config,
) *Router {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Router{
		authHandler:    auth,
		contactHandler: contact,
		userHandler:    user,
		healthHandler:  health,

		authMw:  authMw,
		limiter: limiter,
		metrics: rec,
		scrape:  scrape,
		Config:  config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestContext())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.SecurityLogging())
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.CORS(r.Config.CORS.AllowedOrigins))
	router.Use(middleware.RequestTimeout(r.Config.App.Timeout))

	router.GET("/", r.healthHandler.Root)
	if r.scrape != nil {
		router.GET("/metrics", gin.WrapH(r.scrape))
	}

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)
		api.GET("/health/live", r.healthHandler.Live)

		r.authRoutes(api)
		r.contactRoutes(api)
		r.userRoutes(api)
	}

	return router
}

// rateLimit is a no-op when limiting is disabled in config.
func (r *Router) rateLimit(route string, requests int, window time.Duration) gin.HandlerFunc {
	if !r.Config.RateLimit.Enabled || r.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(r.limiter, route, requests, window, r.metrics)
}
