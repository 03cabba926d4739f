package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godilite/feedback-kiosk/internal/metrics"
	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"go.uber.org/zap"
)

const (
	submitTimeout    = 5 * time.Second
	defaultStoreName = "Mercado Silveira"
)

var (
	ErrNoSnapshot        = errors.New("no feedback snapshot received yet")
	ErrSourceUnavailable = errors.New("feedback source unavailable")
	ErrSubmitFailed      = errors.New("feedback submission failed")
	ErrInvalidQuery      = errors.New("invalid dashboard query")
)

// Snapshot is the latest state delivered by the source. Records are shared
// between holders and must be treated as read-only. Err is set while the
// source is failing; Records then still hold the last good list.
type Snapshot struct {
	Records []models.FeedbackRecord
	Version uint64
	Err     string
	Ready   bool
}

type Option func(*DashboardService)

// WithClock replaces the wall clock used to pick the default reference year.
func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// WithLocation sets the zone used to bucket records into months.
func WithLocation(loc *time.Location) Option {
	return func(s *DashboardService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithStoreName(name string) Option {
	return func(s *DashboardService) {
		if name != "" {
			s.storeName = name
		}
	}
}

// DashboardService holds the single source subscription and derives
// dashboard views from the latest snapshot.
type DashboardService struct {
	source    FeedbackSource
	logger    *zap.Logger
	now       func() time.Time
	loc       *time.Location
	storeName string

	mu          sync.RWMutex
	snap        Snapshot
	started     bool
	stopped     bool
	unsubscribe func()
	watchers    map[uint64]chan Snapshot
	nextWatcher uint64

	memoMu      sync.Mutex
	memoVersion uint64
	memo        map[int]Summary
}

// NewDashboardService creates a DashboardService. It does not subscribe until Start.
func NewDashboardService(source FeedbackSource, logger *zap.Logger, opts ...Option) *DashboardService {
	if source == nil {
		panic("source must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &DashboardService{
		source:    source,
		logger:    logger.Named("dashboard"),
		now:       time.Now,
		loc:       time.UTC,
		storeName: defaultStoreName,
		watchers:  make(map[uint64]chan Snapshot),
		memo:      make(map[int]Summary),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the source. Calling it more than once is a no-op.
func (s *DashboardService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	unsubscribe := s.source.Subscribe(ctx, s.handleSnapshot, s.handleError)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	s.logger.Info("subscribed to feedback source")
}

// Stop releases the subscription and closes every watcher channel.
func (s *DashboardService) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.stopped = true
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	s.mu.Lock()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
		metrics.ActiveWatchers.Dec()
	}
	s.mu.Unlock()
	s.logger.Info("unsubscribed from feedback source")
}

func (s *DashboardService) handleSnapshot(records []models.FeedbackRecord) {
	cp := make([]models.FeedbackRecord, len(records))
	copy(cp, records)

	s.mu.Lock()
	s.snap = Snapshot{
		Records: cp,
		Version: s.snap.Version + 1,
		Ready:   true,
	}
	snap := s.snap
	s.broadcastLocked(snap)
	s.mu.Unlock()

	metrics.SnapshotsReceived.Inc()
	metrics.SnapshotSize.Set(float64(len(cp)))
	s.logger.Debug("feedback snapshot received",
		zap.Int("records", len(cp)),
		zap.Uint64("version", snap.Version))
}

func (s *DashboardService) handleError(err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	s.snap.Err = err.Error()
	snap := s.snap
	s.broadcastLocked(snap)
	s.mu.Unlock()

	metrics.SourceErrors.Inc()
	s.logger.Warn("feedback source error, keeping last snapshot",
		zap.Uint64("version", snap.Version),
		zap.Error(err))
}

// broadcastLocked hands snap to every watcher, replacing any value the
// watcher has not consumed yet.
func (s *DashboardService) broadcastLocked(snap Snapshot) {
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Current returns the latest snapshot.
func (s *DashboardService) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Watch registers a consumer. The channel receives the current snapshot right
// away (when there is one) and the latest snapshot after every change. It is
// closed when ctx ends, the returned func is called, or the service stops.
func (s *DashboardService) Watch(ctx context.Context) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	if s.snap.Ready || s.snap.Err != "" {
		ch <- s.snap
	}
	s.mu.Unlock()
	metrics.ActiveWatchers.Inc()

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
			metrics.ActiveWatchers.Dec()
		}
	}
	stopAfter := context.AfterFunc(ctx, release)

	return ch, func() {
		stopAfter()
		release()
	}
}

// Validate checks the query ranges. Zero fields are always valid.
func (q ViewQuery) Validate() error {
	if q.Rating < 0 || q.Rating > models.MaxRating {
		return fmt.Errorf("%w: rating filter must be between 1 and %d", ErrInvalidQuery, models.MaxRating)
	}
	if q.Page < 0 {
		return fmt.Errorf("%w: page must be positive", ErrInvalidQuery)
	}
	if q.Year != 0 && (q.Year < 1970 || q.Year > 9999) {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidQuery, q.Year)
	}
	return nil
}

// View derives the dashboard for snap with a fresh list selection built from q.
// An out-of-range page leaves the list on page 1.
func (s *DashboardService) View(snap Snapshot, q ViewQuery) (DerivedView, error) {
	if err := q.Validate(); err != nil {
		return DerivedView{}, err
	}

	lv := NewListView(snap.Records)
	if q.Rating != 0 {
		lv.SetRatingFilter(q.Rating)
	}
	if q.Page > 1 {
		lv.SetPage(q.Page)
	}
	return s.Render(snap, q.Year, lv)
}

// Render derives the dashboard for snap using the caller's list selection.
// lv must already hold snap's records. year 0 means the current year.
func (s *DashboardService) Render(snap Snapshot, year int, lv *ListView) (DerivedView, error) {
	if !snap.Ready {
		if snap.Err != "" {
			return DerivedView{}, fmt.Errorf("%w: %s", ErrSourceUnavailable, snap.Err)
		}
		return DerivedView{}, ErrNoSnapshot
	}
	year = s.ResolveYear(year)

	start := time.Now()
	view := DerivedView{
		Summary: s.summary(snap, year),
		List:    lv.Page(),
		Version: snap.Version,
		Stale:   snap.Err != "",
		Error:   snap.Err,
	}
	metrics.ViewRenderMillis.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return view, nil
}

// ResolveYear maps the zero year to the current year in the service location.
func (s *DashboardService) ResolveYear(year int) int {
	if year == 0 {
		return s.now().In(s.loc).Year()
	}
	return year
}

// summary memoizes per reference year for the newest snapshot version only,
// so a failing source keeps serving the aggregates it last computed.
func (s *DashboardService) summary(snap Snapshot, year int) Summary {
	s.memoMu.Lock()
	if s.memoVersion == snap.Version {
		if sm, ok := s.memo[year]; ok {
			s.memoMu.Unlock()
			return sm
		}
	}
	s.memoMu.Unlock()

	sm := BuildSummary(snap.Records, year, s.loc, s.storeName)

	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	switch {
	case snap.Version > s.memoVersion:
		s.memoVersion = snap.Version
		s.memo = map[int]Summary{year: sm}
	case snap.Version == s.memoVersion:
		s.memo[year] = sm
	}
	return sm
}

// BuildSummary runs every aggregation over records.
func BuildSummary(records []models.FeedbackRecord, year int, loc *time.Location, storeName string) Summary {
	dist := RatingsDistribution(records)
	monthly := MonthlyAveragesIn(records, year, loc)
	return Summary{
		StoreName:       storeName,
		TotalCount:      len(records),
		AverageRating:   AverageRating(records),
		Distribution:    dist,
		ReferenceYear:   year,
		MonthlyAverages: monthly,
		TagCounts:       TagCounts(records),
		Charts:          Charts(dist, monthly),
	}
}

// Submit validates and stores a kiosk submission.
func (s *DashboardService) Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		s.logger.Info("rejected feedback submission", zap.Error(err))
		return models.FeedbackRecord{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	rec, err := s.source.Submit(ctx, sub)
	if err != nil {
		s.logger.Error("failed to store feedback", zap.Error(err))
		return models.FeedbackRecord{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.logger.Info("feedback submitted",
		zap.String("id", rec.ID),
		zap.Int("rating", rec.Rating),
		zap.Int("options", len(rec.SelectedOptions)))
	return rec, nil
}

// Categories returns the tag catalog.
func (s *DashboardService) Categories() []models.Category {
	return models.Categories()
}
