package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/documents"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/reports"
	"esg-gap-backend/internal/shared/config"
	"esg-gap-backend/internal/shared/metrics"
	"esg-gap-backend/internal/shared/server/middleware"
	"esg-gap-backend/internal/shared/server/respond"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	ReportHandler   *reports.Handler
	GapHandler      *gapanalysis.Handler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	cfg := deps.Config

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	callbacks := api.Group("")
	callbacks.Use(middleware.CallbackToken(cfg.CallbackToken))
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterCallbackRoutes(callbacks)
	}

	user := api.Group("")
	user.Use(
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rateRules(cfg),
			GroupFor: middleware.ReportRateGroup,
			Limiter:  deps.RateLimiter,
		}),
	)
	registerMeRoutes(user)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(user)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(user)
	}
	if deps.GapHandler != nil {
		deps.GapHandler.RegisterRoutes(user)
	}

	return r
}

// rateRules converts per-minute limits into token buckets. A non-positive
// limit disables the group.
func rateRules(cfg config.Config) map[string]middleware.RateLimitRule {
	rules := map[string]middleware.RateLimitRule{}
	if cfg.RateLimitSubmitPerMin > 0 {
		rules[middleware.RateGroupSubmit] = perMinute(cfg.RateLimitSubmitPerMin)
	}
	if cfg.RateLimitPollingPerMin > 0 {
		rules[middleware.RateGroupPolling] = perMinute(cfg.RateLimitPollingPerMin)
	}
	return rules
}

func perMinute(n int) middleware.RateLimitRule {
	return middleware.RateLimitRule{Rate: float64(n) / 60, Burst: n}
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
