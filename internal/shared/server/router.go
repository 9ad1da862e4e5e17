package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/internal/cfdi"
	"backoffice/internal/quotes"
	"backoffice/internal/services/health"
	"backoffice/internal/shared/config"
	"backoffice/internal/shared/metrics"
	"backoffice/internal/shared/ratelimit"
	"backoffice/internal/shared/server/middleware"
	"backoffice/internal/shared/server/respond"
)

const (
	publicGroup       = "PUBLIC"
	publicLimitPerMin = 60
	publicLimitWindow = time.Minute
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config  config.Config
	Limiter ratelimit.Limiter
	Health  *health.Service
	Quotes  *quotes.Handler
	CFDI    *cfdi.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	if deps.Health != nil {
		deps.Health.RegisterRoutes(&r.RouterGroup)
	}
	r.GET("/license/status", licenseStatus)
	r.GET("/metrics", metrics.Handler())

	public := r.Group("", middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			publicGroup: {Limit: publicLimitPerMin, Window: publicLimitWindow},
		},
		DefaultGroup: publicGroup,
		Limiter:      deps.Limiter,
	}))
	staff := r.Group("", middleware.Auth())
	registerMeRoutes(staff)

	if deps.Quotes != nil {
		deps.Quotes.RegisterPublicRoutes(public)
		deps.Quotes.RegisterRoutes(staff)
	}
	if deps.CFDI != nil {
		deps.CFDI.RegisterRoutes(staff)
	}

	return r
}

func licenseStatus(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"status": "valid", "exp": nil})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
