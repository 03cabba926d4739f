package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	records []models.FeedbackRecord
	listErr error
	lists   int
}

func (f *fakeStore) ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.FeedbackRecord{}, f.records...), nil
}

func (f *fakeStore) InsertFeedback(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := models.FeedbackRecord{ID: time.Now().String(), Rating: sub.Rating}
	f.records = append([]models.FeedbackRecord{rec}, f.records...)
	return rec, nil
}

func (f *fakeStore) set(records []models.FeedbackRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.listErr = err
}

type fakeNotifier struct {
	mu    sync.Mutex
	ch    chan struct{}
	fails int
	calls int
}

func (f *fakeNotifier) Changes(ctx context.Context) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("listen refused")
	}
	f.ch = make(chan struct{}, 1)
	return f.ch, nil
}

func (f *fakeNotifier) fire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch <- struct{}{}
}

func (f *fakeNotifier) closeFeed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.ch)
}

type recorder struct {
	snapshots chan []models.FeedbackRecord
	errs      chan error
}

func newRecorder() *recorder {
	return &recorder{
		snapshots: make(chan []models.FeedbackRecord, 16),
		errs:      make(chan error, 16),
	}
}

func (r *recorder) onSnapshot(records []models.FeedbackRecord) { r.snapshots <- records }
func (r *recorder) onError(err error)                          { r.errs <- err }

func (r *recorder) nextSnapshot(t *testing.T) []models.FeedbackRecord {
	t.Helper()
	select {
	case s := <-r.snapshots:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func (r *recorder) nextError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
		return nil
	}
}

func (r *recorder) quiet(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.snapshots:
		t.Fatalf("unexpected snapshot: %v", s)
	case err := <-r.errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestLiveSource(store *fakeStore, notifier *fakeNotifier) *LiveSource {
	src := NewLiveSource(store, notifier, zap.NewNop())
	src.backoff = 10 * time.Millisecond
	return src
}

func TestLiveSource_DeliversOnChange(t *testing.T) {
	store := &fakeStore{records: []models.FeedbackRecord{{ID: "a", Rating: 5}}}
	notifier := &fakeNotifier{}
	src := newTestLiveSource(store, notifier)
	rec := newRecorder()

	unsubscribe := src.Subscribe(context.Background(), rec.onSnapshot, rec.onError)
	defer unsubscribe()

	assert.Equal(t, "a", rec.nextSnapshot(t)[0].ID)

	t.Run("unchanged list is not redelivered", func(t *testing.T) {
		notifier.fire()
		rec.quiet(t)
	})

	t.Run("changed list is delivered", func(t *testing.T) {
		store.set([]models.FeedbackRecord{{ID: "b", Rating: 1}, {ID: "a", Rating: 5}}, nil)
		notifier.fire()
		assert.Len(t, rec.nextSnapshot(t), 2)
	})
}

func TestLiveSource_ErrorThenRecovery(t *testing.T) {
	store := &fakeStore{records: []models.FeedbackRecord{{ID: "a", Rating: 5}}}
	notifier := &fakeNotifier{}
	src := newTestLiveSource(store, notifier)
	rec := newRecorder()

	unsubscribe := src.Subscribe(context.Background(), rec.onSnapshot, rec.onError)
	defer unsubscribe()
	rec.nextSnapshot(t)

	store.set([]models.FeedbackRecord{{ID: "a", Rating: 5}}, errors.New("database is locked"))
	notifier.fire()
	assert.EqualError(t, rec.nextError(t), "database is locked")

	store.set([]models.FeedbackRecord{{ID: "a", Rating: 5}}, nil)
	notifier.fire()
	got := rec.nextSnapshot(t)
	assert.Equal(t, "a", got[0].ID, "same list is redelivered after a failure")
}

func TestLiveSource_NotifierFailureRetries(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{fails: 1}
	src := newTestLiveSource(store, notifier)
	rec := newRecorder()

	unsubscribe := src.Subscribe(context.Background(), rec.onSnapshot, rec.onError)
	defer unsubscribe()

	assert.Empty(t, rec.nextSnapshot(t))
	assert.ErrorIs(t, rec.nextError(t), ErrChangeFeed)

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return notifier.calls == 2 && notifier.ch != nil
	}, time.Second, 5*time.Millisecond)

	t.Run("closed feed is reopened", func(t *testing.T) {
		notifier.closeFeed()
		require.Eventually(t, func() bool {
			notifier.mu.Lock()
			defer notifier.mu.Unlock()
			return notifier.calls == 3
		}, time.Second, 5*time.Millisecond)
	})
}

func TestLiveSource_RedeliversAfterFeedReopens(t *testing.T) {
	store := &fakeStore{records: []models.FeedbackRecord{{ID: "a", Rating: 4}}}
	notifier := &fakeNotifier{fails: 2}
	src := newTestLiveSource(store, notifier)
	rec := newRecorder()

	unsubscribe := src.Subscribe(context.Background(), rec.onSnapshot, rec.onError)
	defer unsubscribe()

	assert.Equal(t, "a", rec.nextSnapshot(t)[0].ID)
	assert.ErrorIs(t, rec.nextError(t), ErrChangeFeed)
	assert.ErrorIs(t, rec.nextError(t), ErrChangeFeed)

	got := rec.nextSnapshot(t)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID, "unchanged list is redelivered once the feed is back")

	notifier.fire()
	rec.quiet(t)
}

func TestLiveSource_SubmitNudgesSubscribers(t *testing.T) {
	store := &fakeStore{}
	src := newTestLiveSource(store, &fakeNotifier{})
	first, second := newRecorder(), newRecorder()

	unsubFirst := src.Subscribe(context.Background(), first.onSnapshot, first.onError)
	defer unsubFirst()
	unsubSecond := src.Subscribe(context.Background(), second.onSnapshot, second.onError)
	defer unsubSecond()
	first.nextSnapshot(t)
	second.nextSnapshot(t)

	_, err := src.Submit(context.Background(), models.Submission{Rating: 3})
	require.NoError(t, err)

	assert.Len(t, first.nextSnapshot(t), 1)
	assert.Len(t, second.nextSnapshot(t), 1)
}

func TestLiveSource_NoCallbacksAfterUnsubscribe(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	src := newTestLiveSource(store, notifier)
	rec := newRecorder()

	unsubscribe := src.Subscribe(context.Background(), rec.onSnapshot, rec.onError)
	rec.nextSnapshot(t)
	unsubscribe()
	unsubscribe()

	_, err := src.Submit(context.Background(), models.Submission{Rating: 4})
	require.NoError(t, err)
	rec.quiet(t)

	src.mu.Lock()
	assert.Empty(t, src.nudges)
	src.mu.Unlock()
}

func TestNewLiveSourcePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewLiveSource(nil, &fakeNotifier{}, nil) })
}
