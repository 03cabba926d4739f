package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/feedback-kiosk/internal/config"
	handler "github.com/godilite/feedback-kiosk/internal/grpc"
	"github.com/godilite/feedback-kiosk/internal/repository"
	"github.com/godilite/feedback-kiosk/internal/rest"
	"github.com/godilite/feedback-kiosk/internal/service"
	"github.com/godilite/feedback-kiosk/pkg/cache"
	dbbuilder "github.com/godilite/feedback-kiosk/pkg/database"
	"github.com/godilite/feedback-kiosk/pkg/docstore"
	grpcsrv "github.com/godilite/feedback-kiosk/pkg/grpc/server"
	httpsrv "github.com/godilite/feedback-kiosk/pkg/http/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	memoryCacheSize   = 10_000
	grpcKeepalive     = 30 * time.Second
	connectTimeout    = 10 * time.Second
	connectRetries    = 3
	connectRetryDelay = time.Second
)

type App struct {
	logger      *zap.Logger
	dbPool      *sql.DB
	docStore    *docstore.Store
	cache       cache.Cacher
	dashboard   *service.DashboardService
	grpcServer  *grpcsrv.Server
	httpServer  *httpsrv.Server
	stopLimiter func()
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeStores(context.Background())
		}
	}()

	source, err := a.newSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.cache = newCache(ctx, cfg, logger)

	a.dashboard = service.NewDashboardService(source, logger,
		service.WithLocation(loc),
		service.WithStoreName(cfg.StoreName),
	)

	grpcHandlers := handler.NewGRPCHandlers(a.dashboard, a.cache, logger, cfg.CacheTTL)

	a.grpcServer, err = grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithKeepalive(grpcKeepalive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	a.grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterFeedbackDashboardServer(s, grpcHandlers)
	})

	router, stopLimiter := rest.NewRouter(a.dashboard, a.cache, logger, rest.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		SubmitRate:  cfg.SubmitRateLimit,
		SubmitBurst: cfg.SubmitRateBurst,
		CacheTTL:    cfg.CacheTTL,
	})
	a.stopLimiter = stopLimiter

	a.httpServer, err = httpsrv.New(
		httpsrv.WithPort(cfg.HTTPPort),
		httpsrv.WithHandler(router),
		httpsrv.WithLogger(logger),
	)
	if err != nil {
		stopLimiter()
		_ = a.grpcServer.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	ok = true
	return a, nil
}

// newSource opens the configured backend and wraps it in a LiveSource.
func (a *App) newSource(ctx context.Context, cfg *config.Config) (*repository.LiveSource, error) {
	poll := repository.PollNotifier{Interval: cfg.PollInterval}

	switch cfg.Backend {
	case config.BackendRelational:
		dbPool, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithRetry(connectRetries, connectRetryDelay),
			dbbuilder.WithLogger(a.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		a.dbPool = dbPool
		a.logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver))

		repo := repository.NewFeedbackRepository(dbPool, cfg.DBDriver, a.logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("database schema: %w", err)
		}

		var notifier repository.Notifier = poll
		if cfg.DBDriver == repository.DriverPostgres {
			notifier = repository.FallbackNotifier{
				Primary:   repository.PQNotifier{DSN: cfg.DBPath, Logger: a.logger},
				Secondary: poll,
				Logger:    a.logger,
			}
		}
		return repository.NewLiveSource(repo, notifier, a.logger), nil

	case config.BackendDocument:
		store, err := docstore.New(ctx,
			docstore.WithURI(cfg.MongoURI),
			docstore.WithDatabase(cfg.MongoDatabase),
			docstore.WithConnectTimeout(connectTimeout),
			docstore.WithRetry(connectRetries, connectRetryDelay),
			docstore.WithLogger(a.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("document store init failed: %w", err)
		}
		a.docStore = store
		a.logger.Info("Document store initialized",
			zap.String("database", cfg.MongoDatabase),
			zap.String("collection", cfg.MongoCollection))

		repo := repository.NewDocumentRepository(store.Collection(cfg.MongoCollection), a.logger)
		notifier := repository.FallbackNotifier{Primary: repo, Secondary: poll, Logger: a.logger}
		return repository.NewLiveSource(repo, notifier, a.logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}

// newCache connects to redis when configured and falls back to an
// in-process cache otherwise.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.Cacher {
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.WithAddress(cfg.RedisAddr))
		if err == nil {
			logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
			return redisCache
		}
		logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	logger.Info("In-memory cache initialized")
	return cache.NewMemory(cfg.CacheTTL, memoryCacheSize)
}

// Run starts the application and blocks until ctx ends or a shutdown signal
// is received.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.dashboard.Start(context.WithoutCancel(ctx))
	a.grpcServer.Start()
	a.httpServer.Start()

	<-ctx.Done()
	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.stopLimiter()

	// closes every gRPC stream and websocket watching the dashboard
	a.dashboard.Stop()

	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}

	a.closeStores(shutdownCtx)

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func (a *App) closeStores(ctx context.Context) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
	if a.docStore != nil {
		if err := a.docStore.Close(ctx); err != nil {
			a.logger.Error("document store shutdown error", zap.Error(err))
		}
	}
}
