package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service/mocks"
	"go.uber.org/zap"
)

func benchRecords(n int) []models.FeedbackRecord {
	base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	catalog := models.Categories()
	out := make([]models.FeedbackRecord, n)
	for i := range out {
		ts := base.Add(time.Duration(i) * 37 * time.Minute)
		out[i] = models.FeedbackRecord{
			ID:              fmt.Sprintf("fb-%d", i),
			Rating:          i%5 + 1,
			SelectedOptions: []string{catalog[i%len(catalog)].ID},
			CreatedAt:       &ts,
		}
	}
	return out
}

func BenchmarkBuildSummary(b *testing.B) {
	records := benchRecords(10_000)

	b.ReportAllocs()

	for b.Loop() {
		_ = BuildSummary(records, 2024, time.UTC, defaultStoreName)
	}
}

func BenchmarkDashboardView(b *testing.B) {
	src := &mocks.MockFeedbackSource{}
	svc := NewDashboardService(src, zap.NewNop())
	svc.Start(context.Background())
	b.Cleanup(svc.Stop)
	src.Emit(benchRecords(10_000))

	b.ReportAllocs()

	for b.Loop() {
		_, _ = svc.View(svc.Current(), ViewQuery{Rating: 4, Page: 3, Year: 2024})
	}
}
