package rest

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godilite/feedback-kiosk/pkg/cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultSubmitRate  = 1.0
	defaultSubmitBurst = 5
	limiterIdleTTL     = 10 * time.Minute
)

// RouterConfig controls the HTTP surface.
type RouterConfig struct {
	CORSOrigins []string
	SubmitRate  float64
	SubmitBurst int
	CacheTTL    time.Duration
}

// NewRouter wires the dashboard and kiosk routes. The returned func releases
// the rate limiter and must be called once the server is shut down.
func NewRouter(dashboard DashboardService, c cache.Cacher, logger *zap.Logger, cfg RouterConfig) (*gin.Engine, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SubmitRate <= 0 {
		cfg.SubmitRate = defaultSubmitRate
	}
	if cfg.SubmitBurst <= 0 {
		cfg.SubmitBurst = defaultSubmitBurst
	}

	h := NewHandlers(dashboard, c, logger, cfg.CacheTTL)
	limiter := newIPLimiter(cfg.SubmitRate, cfg.SubmitBurst, limiterIdleTTL)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.Named("http")))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(corsMiddleware(cfg.CORSOrigins))
	}

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/categories", h.categories)
	r.POST("/feedback", limiter.middleware(), h.submit)

	dash := r.Group("/dashboard")
	dash.GET("", h.getDashboard)
	dash.GET("/ws", h.dashboardSocket(newUpgrader(cfg.CORSOrigins)))

	return r, limiter.stop
}
