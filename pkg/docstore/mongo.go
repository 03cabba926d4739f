package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Options struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	RetryAttempts  int
	RetryDelay     time.Duration
	Logger         *zap.Logger
}

type Option func(*Options)

func WithURI(uri string) Option {
	return func(o *Options) { o.URI = uri }
}

func WithDatabase(name string) Option {
	return func(o *Options) { o.Database = name }
}

func WithAppName(name string) Option {
	return func(o *Options) { o.AppName = name }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithMaxPoolSize(n uint64) Option {
	return func(o *Options) { o.MaxPoolSize = n }
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

// Store is a connected mongo client bound to one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects and pings the primary, retrying with linear backoff.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	options := &Options{
		URI:            "mongodb://localhost:27017",
		Database:       "kiosk",
		AppName:        "feedback-kiosk",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    20,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.URI == "" {
		return nil, fmt.Errorf("mongo uri cannot be empty")
	}
	if options.Database == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}
	if options.RetryAttempts < 1 {
		options.RetryAttempts = 1
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := mopts.Client().
		ApplyURI(options.URI).
		SetAppName(options.AppName).
		SetConnectTimeout(options.ConnectTimeout).
		SetMaxPoolSize(options.MaxPoolSize)

	var err error
	for i := 0; i < options.RetryAttempts; i++ {
		var client *mongo.Client
		client, err = mongo.Connect(ctx, clientOpts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, options.ConnectTimeout)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				return &Store{client: client, db: client.Database(options.Database)}, nil
			}
			_ = client.Disconnect(context.Background())
		}

		logger.Warn("mongo connection attempt failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", options.RetryAttempts),
			zap.Error(err))

		if i < options.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("connect to mongo: %w", ctx.Err())
			case <-time.After(time.Duration(i+1) * options.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to mongo after %d attempts: %w", options.RetryAttempts, err)
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
