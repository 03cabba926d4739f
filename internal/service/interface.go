package service

import (
	"context"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
)

// FeedbackSource is the backend contract. Subscribe delivers the full list,
// newest first, once on subscribe and again after every change. Callbacks are
// never invoked after the returned unsubscribe func has returned.
type FeedbackSource interface {
	Subscribe(ctx context.Context, onSnapshot func([]models.FeedbackRecord), onError func(error)) (unsubscribe func())
	Submit(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error)
}
