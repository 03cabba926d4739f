package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	port         int
	listener     net.Listener
	handler      http.Handler
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

func WithPort(port int) Option {
	return func(o *Options) {
		o.port = port
	}
}

// WithListener serves on lis instead of opening a TCP port.
func WithListener(lis net.Listener) Option {
	return func(o *Options) {
		o.listener = lis
	}
}

func WithHandler(h http.Handler) Option {
	return func(o *Options) {
		o.handler = h
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

func WithTimeouts(read, write, idle time.Duration) Option {
	return func(o *Options) {
		o.readTimeout = read
		o.writeTimeout = write
		o.idleTimeout = idle
	}
}

type Server struct {
	srv    *http.Server
	lis    net.Listener
	logger *zap.Logger
}

// New creates an HTTP server using the builder options. The listener is
// opened immediately so the bound address is known before Start.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:         8080,
		logger:       zap.NewNop(),
		readTimeout:  10 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  time.Minute,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.handler == nil {
		return nil, fmt.Errorf("http handler cannot be nil")
	}

	lis := options.listener
	if lis == nil {
		if options.port < 1 || options.port > 65535 {
			return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", options.port)
		}

		var err error
		lis, err = net.Listen("tcp", fmt.Sprintf(":%d", options.port))
		if err != nil {
			return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
		}
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		srv: &http.Server{
			Handler:      options.handler,
			ReadTimeout:  options.readTimeout,
			WriteTimeout: options.writeTimeout,
			IdleTimeout:  options.idleTimeout,
			ErrorLog:     zap.NewStdLog(logger.Named("net/http")),
		},
		lis:    lis,
		logger: logger.Named("http-server"),
	}, nil
}

// Start runs the server in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("HTTP server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// RegisterOnShutdown runs f when Shutdown begins. Hijacked connections such
// as websockets are not tracked by the server and use this to close.
func (s *Server) RegisterOnShutdown(f func()) {
	s.srv.RegisterOnShutdown(f)
}

// Shutdown drains in-flight requests, closing them forcibly once ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("forced shutdown due to timeout", zap.Error(err))
		_ = s.srv.Close()
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
