package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"go.uber.org/zap"
)

const (
	queryTimeout       = 5 * time.Second
	resubscribeBackoff = 5 * time.Second
)

var ErrChangeFeed = errors.New("change feed unavailable")

// LiveSource turns a FeedbackStore and a Notifier into a subscription that
// re-reads the whole list on every change notification.
type LiveSource struct {
	store    FeedbackStore
	notifier Notifier
	logger   *zap.Logger
	backoff  time.Duration

	mu     sync.Mutex
	nudges map[uint64]chan struct{}
	nextID uint64
}

func NewLiveSource(store FeedbackStore, notifier Notifier, logger *zap.Logger) *LiveSource {
	if store == nil || notifier == nil {
		panic("store and notifier must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveSource{
		store:    store,
		notifier: notifier,
		logger:   logger.Named("live_source"),
		backoff:  resubscribeBackoff,
		nudges:   make(map[uint64]chan struct{}),
	}
}

// Subscribe delivers the current list right away and again whenever it
// changes. Callbacks run on one goroutine, one at a time. The returned func
// blocks until that goroutine exits, so it must not be called from inside a
// callback.
func (s *LiveSource) Subscribe(ctx context.Context, onSnapshot func([]models.FeedbackRecord), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	nudge := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.nudges[id] = nudge
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx, nudge, onSnapshot, onError)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			s.mu.Lock()
			delete(s.nudges, id)
			s.mu.Unlock()
		})
	}
}

type subscription struct {
	last      []models.FeedbackRecord
	delivered bool
	failing   bool
}

func (s *LiveSource) run(ctx context.Context, nudge <-chan struct{}, onSnapshot func([]models.FeedbackRecord), onError func(error)) {
	var sub subscription

	refresh := func() {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		records, err := s.store.ListFeedback(qctx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sub.failing = true
			onError(err)
			return
		}
		if sub.delivered && !sub.failing && sameRecords(sub.last, records) {
			return
		}
		sub.last, sub.delivered, sub.failing = records, true, false
		onSnapshot(records)
	}

	// the next successful refresh must clear the reported feed error
	feedFailed := func(err error) {
		sub.failing = true
		onError(fmt.Errorf("%w: %v", ErrChangeFeed, err))
	}

	refresh()

	var retry <-chan time.Time
	changes, err := s.notifier.Changes(ctx)
	if err != nil {
		feedFailed(err)
		retry = time.After(s.backoff)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-nudge:
			refresh()
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("change feed closed, resubscribing", zap.Duration("backoff", s.backoff))
				changes = nil
				retry = time.After(s.backoff)
				continue
			}
			refresh()
		case <-retry:
			retry = nil
			changes, err = s.notifier.Changes(ctx)
			if err != nil {
				feedFailed(err)
				retry = time.After(s.backoff)
				continue
			}
			refresh()
		}
	}
}

// Submit stores sub and wakes every subscriber so the new record shows up
// without waiting for the next change notification.
func (s *LiveSource) Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	rec, err := s.store.InsertFeedback(ctx, sub)
	if err != nil {
		return models.FeedbackRecord{}, err
	}

	s.mu.Lock()
	for _, ch := range s.nudges {
		signal(ch)
	}
	s.mu.Unlock()
	return rec, nil
}

func sameRecords(a, b []models.FeedbackRecord) bool {
	return slices.EqualFunc(a, b, func(x, y models.FeedbackRecord) bool {
		if x.ID != y.ID || x.Rating != y.Rating || x.Comment != y.Comment {
			return false
		}
		if (x.CreatedAt == nil) != (y.CreatedAt == nil) {
			return false
		}
		if x.CreatedAt != nil && !x.CreatedAt.Equal(*y.CreatedAt) {
			return false
		}
		return slices.Equal(x.SelectedOptions, y.SelectedOptions)
	})
}
