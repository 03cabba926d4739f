package mocks

import (
	"context"
	"errors"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service"
)

// MockDashboardService is a mock implementation of the DashboardService
// interface for testing the handler layer.
type MockDashboardService struct {
	CurrentFunc     func() service.Snapshot
	ViewFunc        func(snap service.Snapshot, q service.ViewQuery) (service.DerivedView, error)
	ResolveYearFunc func(year int) int
	WatchFunc       func(ctx context.Context) (<-chan service.Snapshot, func())
	SubmitFunc      func(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error)
	CategoriesFunc  func() []models.Category
}

// Current implements the DashboardService interface
func (m *MockDashboardService) Current() service.Snapshot {
	if m.CurrentFunc != nil {
		return m.CurrentFunc()
	}
	return service.Snapshot{}
}

// View implements the DashboardService interface
func (m *MockDashboardService) View(snap service.Snapshot, q service.ViewQuery) (service.DerivedView, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(snap, q)
	}
	return service.DerivedView{}, errors.New("ViewFunc not implemented")
}

// ResolveYear implements the DashboardService interface
func (m *MockDashboardService) ResolveYear(year int) int {
	if m.ResolveYearFunc != nil {
		return m.ResolveYearFunc(year)
	}
	if year == 0 {
		return 2024
	}
	return year
}

// Watch implements the DashboardService interface
func (m *MockDashboardService) Watch(ctx context.Context) (<-chan service.Snapshot, func()) {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx)
	}
	ch := make(chan service.Snapshot)
	close(ch)
	return ch, func() {}
}

// Submit implements the DashboardService interface
func (m *MockDashboardService) Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sub)
	}
	return models.FeedbackRecord{}, errors.New("SubmitFunc not implemented")
}

// Categories implements the DashboardService interface
func (m *MockDashboardService) Categories() []models.Category {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc()
	}
	return models.Categories()
}
