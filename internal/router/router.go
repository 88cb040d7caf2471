// Package router assembles the gin engine: middleware chain, route
// registration and the operational endpoints.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alsalam/hospital-api/internal/handler/appointment"
	"github.com/alsalam/hospital-api/internal/handler/auth"
	"github.com/alsalam/hospital-api/internal/handler/billing"
	"github.com/alsalam/hospital-api/internal/handler/clinical"
	"github.com/alsalam/hospital-api/internal/handler/facility"
	"github.com/alsalam/hospital-api/internal/handler/health"
	"github.com/alsalam/hospital-api/internal/handler/patient"
	"github.com/alsalam/hospital-api/internal/handler/rbac"
	"github.com/alsalam/hospital-api/internal/handler/report"
	"github.com/alsalam/hospital-api/internal/handler/user"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/pkg/logger"
)

type Config struct {
	Mode           string
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	RateLimit      middleware.RateLimitConfig
}

type Handlers struct {
	Health      *health.Handler
	Auth        *auth.Handler
	User        *user.Handler
	RBAC        *rbac.Handler
	Patient     *patient.Handler
	Appointment *appointment.Handler
	Clinical    *clinical.Handler
	Facility    *facility.Handler
	Billing     *billing.Handler
	Report      *report.Handler
}

type Router struct {
	engine *gin.Engine
}

func New(cfg Config, log *logger.Logger, authMW *middleware.AuthMiddleware, h Handlers) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	engine := gin.New()
	metrics := middleware.NewHTTPMetrics("hospital_api")

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.ErrorHandler(),
		metrics.Handler(),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(cfg.RateLimit),
	)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root := engine.Group("")
	h.Health.RegisterRoutes(root)

	api := engine.Group("/api/v1", middleware.Timeout(cfg.RequestTimeout))
	h.Auth.RegisterRoutes(api)

	protected := api.Group("", authMW.Authenticate())
	{
		h.Auth.RegisterProtectedRoutes(protected)
		h.User.RegisterRoutes(protected, authMW)
		h.RBAC.RegisterRoutes(protected, authMW)
		h.Patient.RegisterRoutes(protected, authMW)
		h.Appointment.RegisterRoutes(protected, authMW)
		h.Clinical.RegisterRoutes(protected, authMW)
		h.Facility.RegisterRoutes(protected, authMW)
		h.Billing.RegisterRoutes(protected, authMW)
		h.Report.RegisterRoutes(protected, authMW)
	}

	return &Router{engine: engine}
}

// Engine exposes the underlying gin engine for the HTTP server.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
