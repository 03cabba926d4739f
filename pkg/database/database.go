package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Options struct {
	Driver          string
	DataSource      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	Logger          *zap.Logger
}

type Option func(*Options)

func WithDriver(driver string) Option {
	return func(o *Options) { o.Driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *Options) { o.DataSource = dsn }
}

func WithMaxOpenConns(count int) Option {
	return func(o *Options) { o.MaxOpenConns = count }
}

func WithMaxIdleConns(count int) Option {
	return func(o *Options) { o.MaxIdleConns = count }
}

func WithConnMaxLifetime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxLifetime = duration }
}

func WithConnMaxIdleTime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxIdleTime = duration }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// inMemorySQLite reports whether every pooled connection would open its own
// private database.
func inMemorySQLite(driver, dsn string) bool {
	return driver == "sqlite3" && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory"))
}

// New creates a new database connection pool using the provided options.
func New(ctx context.Context, opts ...Option) (*sql.DB, error) {
	options := &Options{
		Driver:          "sqlite3",
		DataSource:      ":memory:",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.Driver == "" {
		return nil, fmt.Errorf("database driver cannot be empty")
	}
	if options.DataSource == "" {
		return nil, fmt.Errorf("database data source cannot be empty")
	}
	if options.RetryAttempts < 1 {
		options.RetryAttempts = 1
	}
	if inMemorySQLite(options.Driver, options.DataSource) {
		options.MaxOpenConns = 1
		options.MaxIdleConns = 1
		options.ConnMaxLifetime = 0
		options.ConnMaxIdleTime = 0
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *sql.DB
	var err error

	for i := 0; i < options.RetryAttempts; i++ {
		db, err = sql.Open(options.Driver, options.DataSource)
		if err == nil {
			db.SetMaxOpenConns(options.MaxOpenConns)
			db.SetMaxIdleConns(options.MaxIdleConns)
			db.SetConnMaxLifetime(options.ConnMaxLifetime)
			db.SetConnMaxIdleTime(options.ConnMaxIdleTime)

			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}

			db.Close()
		}

		logger.Warn("database connection attempt failed",
			zap.String("driver", options.Driver),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", options.RetryAttempts),
			zap.Error(err))

		// linear backoff
		if i < options.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("connect to database: %w", ctx.Err())
			case <-time.After(time.Duration(i+1) * options.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", options.RetryAttempts, err)
}
