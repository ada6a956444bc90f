package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/services/health"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

const apiPrefix = "/api/v1"

// rate limit groups
const (
	groupAnalyze = "ANALYZE"
	groupDefault = "DEFAULT"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are
// skipped. DevRoutes are only mounted outside production. A nil Health gets
// a service with no readiness checks.
type RouterDeps struct {
	Config    config.Config
	Verifier  middleware.TokenVerifier
	Health    *health.Service
	Public    []RouteRegistrar
	Handlers  []RouteRegistrar
	DevRoutes []DevRegistrar
}

// DevRegistrar exposes maintenance routes for local environments.
type DevRegistrar interface {
	RegisterDevRoutes(rg *gin.RouterGroup)
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group(apiPrefix)
	api.Use(
		middleware.Auth(deps.Verifier, apiPrefix+"/health", apiPrefix+"/auth/"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				groupAnalyze: {Rate: cfg.RateLimitAnalyzeRPM / 60, Burst: cfg.RateLimitAnalyzeBurst},
				groupDefault: {Rate: cfg.RateLimitDefaultRPM / 60, Burst: cfg.RateLimitDefaultBurst},
			},
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
		}),
	)
	probes := deps.Health
	if probes == nil {
		probes = health.NewService()
	}
	probes.RegisterRoutes(api)
	for _, h := range deps.Public {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	if cfg.Env != "production" && len(deps.DevRoutes) > 0 {
		dev := api.Group("/dev")
		for _, h := range deps.DevRoutes {
			if h != nil {
				h.RegisterDevRoutes(dev)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "route not found", nil)
	})
	return r
}

// rateLimitGroup puts every call that spends an inference in the stricter
// bucket.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return groupDefault
	}
	path := c.Request.URL.Path
	switch {
	case strings.HasSuffix(path, "/analyze"),
		strings.HasPrefix(path, apiPrefix+"/analyses/text"),
		strings.HasPrefix(path, apiPrefix+"/analyses/profile"):
		return groupAnalyze
	default:
		return groupDefault
	}
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
