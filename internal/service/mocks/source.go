package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
)

// MockFeedbackSource is a mock implementation of the FeedbackSource interface
// for testing the service layer. Emit and Fail drive the registered callbacks.
type MockFeedbackSource struct {
	SubmitFunc func(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error)
	// SubscribeHook runs at the start of Subscribe, before callbacks are registered.
	SubscribeHook func()

	mu           sync.Mutex
	onSnapshot   func([]models.FeedbackRecord)
	onError      func(error)
	Subscribed   int
	Unsubscribed int
}

// Subscribe implements the FeedbackSource interface
func (m *MockFeedbackSource) Subscribe(ctx context.Context, onSnapshot func([]models.FeedbackRecord), onError func(error)) func() {
	if m.SubscribeHook != nil {
		m.SubscribeHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSnapshot = onSnapshot
	m.onError = onError
	m.Subscribed++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.onSnapshot = nil
		m.onError = nil
		m.Unsubscribed++
	}
}

// Submit implements the FeedbackSource interface
func (m *MockFeedbackSource) Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sub)
	}
	return models.FeedbackRecord{}, errors.New("SubmitFunc not implemented")
}

// Emit delivers records to the current subscriber, if any.
func (m *MockFeedbackSource) Emit(records []models.FeedbackRecord) {
	m.mu.Lock()
	fn := m.onSnapshot
	m.mu.Unlock()
	if fn != nil {
		fn(records)
	}
}

// Fail reports err to the current subscriber, if any.
func (m *MockFeedbackSource) Fail(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
