package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier signals that the stored feedback may have changed. The channel is
// closed when ctx ends or the underlying feed breaks.
type Notifier interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
}

// signal performs a coalescing send: at most one pending change is kept.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// PollNotifier ticks at a fixed interval.
type PollNotifier struct {
	Interval time.Duration
}

func (p PollNotifier) Changes(ctx context.Context) (<-chan struct{}, error) {
	if p.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", p.Interval)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				signal(out)
			}
		}
	}()
	return out, nil
}

// PQNotifier listens on a postgres NOTIFY channel.
type PQNotifier struct {
	DSN     string
	Channel string
	Logger  *zap.Logger
}

const (
	pqMinReconnect = 10 * time.Second
	pqMaxReconnect = time.Minute
	pqPingInterval = 90 * time.Second
)

func (p PQNotifier) Changes(ctx context.Context) (<-chan struct{}, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := p.Channel
	if channel == "" {
		channel = ChangesChannel
	}

	listener := pq.NewListener(p.DSN, pqMinReconnect, pqMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer listener.Close()

		ticker := time.NewTicker(pqPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				// a nil notification follows a reconnect; changes may have been missed
				signal(out)
			case <-ticker.C:
				go func() {
					if err := listener.Ping(); err != nil {
						logger.Debug("postgres listener ping failed", zap.Error(err))
					}
				}()
			}
		}
	}()
	return out, nil
}

// FallbackNotifier uses Primary and switches to Secondary when Primary
// cannot be opened.
type FallbackNotifier struct {
	Primary   Notifier
	Secondary Notifier
	Logger    *zap.Logger
}

func (f FallbackNotifier) Changes(ctx context.Context) (<-chan struct{}, error) {
	ch, err := f.Primary.Changes(ctx)
	if err == nil {
		return ch, nil
	}
	if f.Logger != nil {
		f.Logger.Warn("change feed unavailable, falling back", zap.Error(err))
	}
	return f.Secondary.Changes(ctx)
}
