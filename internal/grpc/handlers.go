package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/feedback-kiosk/internal/metrics"
	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service"
	"github.com/godilite/feedback-kiosk/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type CacheKeyType string

const cacheKeyDashboard CacheKeyType = "grpc:dashboard"

type GRPCHandlers struct {
	dashboard DashboardService
	cache     cache.Cacher
	logger    *zap.Logger
	sfGroup   singleflight.Group
	cacheTTL  time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers. cache may be nil.
func NewGRPCHandlers(dashboard DashboardService, c cache.Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		dashboard: dashboard,
		cache:     c,
		logger:    logger.Named("grpc-handler"),
		cacheTTL:  ttl,
	}
}

// normalizeKey identifies one derived view. A snapshot version never changes
// content, so entries are safe to serve until they expire.
func normalizeKey(prefix CacheKeyType, version uint64, q service.ViewQuery) string {
	return fmt.Sprintf("%s:v%d:r%d:p%d:y%d", prefix, version, q.Rating, q.Page, q.Year)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, models.ErrInvalidSubmission), errors.Is(err, service.ErrInvalidQuery):
		s.logger.Info("invalid argument", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNoSnapshot):
		s.logger.Info("feedback not loaded yet", zap.String("op", op))
		return status.Error(codes.Unavailable, "feedback not loaded yet")
	case errors.Is(err, service.ErrSourceUnavailable):
		s.logger.Warn("feedback source unavailable", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, service.ErrSubmitFailed):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "failed to store feedback")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := parseViewQuery(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	snap := s.dashboard.Current()
	render := func(context.Context) (service.DerivedView, error) {
		return s.dashboard.View(snap, q)
	}

	var view service.DerivedView
	if snap.Ready && snap.Err == "" {
		keyed := q
		keyed.Year = s.dashboard.ResolveYear(q.Year)
		cacheKey := normalizeKey(cacheKeyDashboard, snap.Version, keyed)
		view, err = cache.FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, render)
	} else {
		view, err = render(ctx)
	}
	if err != nil {
		return nil, s.handleError(ctx, "GetDashboard", err)
	}

	out, err := toStruct(view)
	if err != nil {
		return nil, s.handleError(ctx, "GetDashboard", err)
	}
	return out, nil
}

func (s *GRPCHandlers) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sub, err := parseSubmission(req)
	if err != nil {
		metrics.Submissions.WithLabelValues("grpc", "invalid").Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	rec, err := s.dashboard.Submit(ctx, sub)
	if err != nil {
		result := "error"
		if errors.Is(err, models.ErrInvalidSubmission) {
			result = "invalid"
		}
		metrics.Submissions.WithLabelValues("grpc", result).Inc()
		return nil, s.handleError(ctx, "SubmitFeedback", err)
	}
	metrics.Submissions.WithLabelValues("grpc", "ok").Inc()

	out, err := toStruct(rec)
	if err != nil {
		return nil, s.handleError(ctx, "SubmitFeedback", err)
	}
	return out, nil
}

func (s *GRPCHandlers) ListCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(map[string]any{"categories": s.dashboard.Categories()})
	if err != nil {
		return nil, s.handleError(ctx, "ListCategories", err)
	}
	return out, nil
}

// WatchDashboard pushes a freshly derived view whenever the snapshot changes.
// Before the first snapshot, source errors are sent as {"error": ...} frames.
func (s *GRPCHandlers) WatchDashboard(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	q, err := parseViewQuery(req)
	if err != nil {
		return err
	}

	ctx := stream.Context()
	updates, stop := s.dashboard.Watch(ctx)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case snap, ok := <-updates:
			if !ok {
				return status.Error(codes.Unavailable, "dashboard stopped")
			}

			var payload any
			view, err := s.dashboard.View(snap, q)
			switch {
			case err == nil:
				payload = view
			case errors.Is(err, service.ErrSourceUnavailable):
				payload = map[string]any{"error": snap.Err, "stale": true}
			default:
				return s.handleError(ctx, "WatchDashboard", err)
			}

			msg, err := toStruct(payload)
			if err != nil {
				return s.handleError(ctx, "WatchDashboard", err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
