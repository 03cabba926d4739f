package rest

import (
	"context"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service"
)

// DashboardService is the part of service.DashboardService the HTTP layer uses.
type DashboardService interface {
	Current() service.Snapshot
	View(snap service.Snapshot, q service.ViewQuery) (service.DerivedView, error)
	Render(snap service.Snapshot, year int, lv *service.ListView) (service.DerivedView, error)
	ResolveYear(year int) int
	Watch(ctx context.Context) (<-chan service.Snapshot, func())
	Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error)
	Categories() []models.Category
}
