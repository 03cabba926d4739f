package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godilite/feedback-kiosk/internal/metrics"
	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service"
	"github.com/godilite/feedback-kiosk/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheDuration = 10 * time.Minute
	cacheKeyDashboard    = "http:dashboard"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

// Handlers serves the dashboard and kiosk endpoints.
type Handlers struct {
	dashboard DashboardService
	cache     cache.Cacher
	logger    *zap.Logger
	sfGroup   singleflight.Group
	cacheTTL  time.Duration
}

func NewHandlers(dashboard DashboardService, c cache.Cacher, logger *zap.Logger, ttl time.Duration) *Handlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &Handlers{
		dashboard: dashboard,
		cache:     c,
		logger:    logger.Named("http-handler"),
		cacheTTL:  ttl,
	}
}

// statusFor maps service errors to HTTP status codes and client messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidSubmission), errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNoSnapshot):
		return http.StatusServiceUnavailable, "feedback not loaded yet"
	case errors.Is(err, service.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, service.ErrSubmitFailed):
		return http.StatusInternalServerError, "failed to store feedback"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handlers) fail(c *gin.Context, op string, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	_ = c.Error(err)
	abortWithError(c, code, msg)
}

func (h *Handlers) health(c *gin.Context) {
	snap := h.dashboard.Current()
	body := gin.H{
		"ready":   snap.Ready,
		"version": snap.Version,
	}
	if snap.Err != "" {
		body["error"] = snap.Err
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.dashboard.Categories()})
}

func (h *Handlers) submit(c *gin.Context) {
	var sub models.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		metrics.Submissions.WithLabelValues("http", "invalid").Inc()
		abortWithError(c, http.StatusBadRequest, "malformed feedback payload")
		return
	}

	rec, err := h.dashboard.Submit(c.Request.Context(), sub)
	if err != nil {
		result := "error"
		if errors.Is(err, models.ErrInvalidSubmission) {
			result = "invalid"
		}
		metrics.Submissions.WithLabelValues("http", result).Inc()
		h.fail(c, "submit", err)
		return
	}

	metrics.Submissions.WithLabelValues("http", "ok").Inc()
	c.JSON(http.StatusCreated, rec)
}

func (h *Handlers) getDashboard(c *gin.Context) {
	var q service.ViewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "rating, page and year must be integers")
		return
	}

	snap := h.dashboard.Current()
	render := func() (service.DerivedView, error) {
		return h.dashboard.View(snap, q)
	}

	var (
		view service.DerivedView
		err  error
	)
	if snap.Ready && snap.Err == "" {
		keyed := q
		keyed.Year = h.dashboard.ResolveYear(q.Year)
		key := fmt.Sprintf("%s:v%d:r%d:p%d:y%d", cacheKeyDashboard, snap.Version, keyed.Rating, keyed.Page, keyed.Year)
		view, err = cache.FindAndCache(c.Request.Context(), h.cache, &h.sfGroup, key, h.cacheTTL, h.logger,
			func(_ context.Context) (service.DerivedView, error) { return render() })
	} else {
		view, err = render()
	}
	if err != nil {
		h.fail(c, "dashboard", err)
		return
	}

	c.JSON(http.StatusOK, view)
}
