package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request, at error level for 5xx.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP request failed", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP request rejected", fields...)
		default:
			logger.Info("HTTP request completed", fields...)
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// ipLimiter hands out one token bucket per client IP. Buckets of clients
// that stay quiet for the idle period are evicted.
type ipLimiter struct {
	mu       sync.Mutex
	stopOnce sync.Once
	limiters *ttlcache.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func newIPLimiter(rps float64, burst int, idle time.Duration) *ipLimiter {
	limiters := ttlcache.New(ttlcache.WithTTL[string, *rate.Limiter](idle))
	go limiters.Start()
	return &ipLimiter{
		limiters: limiters,
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if item := l.limiters.Get(ip); item != nil {
		lim = item.Value()
	} else {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters.Set(ip, lim, ttlcache.DefaultTTL)
	}
	return lim.Allow()
}

func (l *ipLimiter) stop() {
	l.stopOnce.Do(l.limiters.Stop)
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			abortWithError(c, http.StatusTooManyRequests, "too many submissions, try again shortly")
			return
		}
		c.Next()
	}
}
