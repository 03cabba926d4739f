package service

import (
	"testing"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func rec(id string, rating int, createdAt *time.Time, opts ...string) models.FeedbackRecord {
	return models.FeedbackRecord{ID: id, Rating: rating, SelectedOptions: opts, CreatedAt: createdAt}
}

func TestRatingsDistribution(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		d := RatingsDistribution(nil)

		assert.Equal(t, 0, d.Total)
		require.Len(t, d.Buckets, 5)
		for i, b := range d.Buckets {
			assert.Equal(t, i+1, b.Star)
			assert.Equal(t, 0, b.Count)
			assert.Equal(t, 0.0, b.Percentage)
		}
	})

	t.Run("sparse data defaults to zero", func(t *testing.T) {
		records := []models.FeedbackRecord{
			rec("a", 5, nil), rec("b", 5, nil), rec("c", 1, nil),
		}

		d := RatingsDistribution(records)

		assert.Equal(t, 3, d.Total)
		assert.Equal(t, 1, d.Bucket(1).Count)
		assert.Equal(t, 0, d.Bucket(2).Count)
		assert.Equal(t, 0, d.Bucket(3).Count)
		assert.Equal(t, 0, d.Bucket(4).Count)
		assert.Equal(t, 2, d.Bucket(5).Count)
		assert.InDelta(t, 33.3, d.Bucket(1).Percentage, 1e-9)
		assert.InDelta(t, 66.7, d.Bucket(5).Percentage, 1e-9)
	})

	t.Run("counts sum to record count", func(t *testing.T) {
		var records []models.FeedbackRecord
		for i := 0; i < 137; i++ {
			records = append(records, rec("", i%5+1, nil))
		}

		d := RatingsDistribution(records)

		sum := 0
		for _, b := range d.Buckets {
			sum += b.Count
		}
		assert.Equal(t, len(records), sum)
		assert.Equal(t, len(records), d.Total)
	})

	t.Run("duplicate ids are counted separately", func(t *testing.T) {
		d := RatingsDistribution([]models.FeedbackRecord{rec("x", 4, nil), rec("x", 4, nil)})
		assert.Equal(t, 2, d.Bucket(4).Count)
		assert.Equal(t, 100.0, d.Bucket(4).Percentage)
	})

	t.Run("out of range bucket lookup", func(t *testing.T) {
		d := RatingsDistribution(nil)
		assert.Equal(t, RatingBucket{Star: 9}, d.Bucket(9))
	})
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 0.0, AverageRating([]models.FeedbackRecord{}))
	assert.Equal(t, 4.0, AverageRating([]models.FeedbackRecord{rec("a", 5, nil), rec("b", 3, nil)}))
	assert.InDelta(t, 4.7, AverageRating([]models.FeedbackRecord{rec("a", 5, nil), rec("b", 5, nil), rec("c", 4, nil)}), 1e-9)
	assert.InDelta(t, 1.0, AverageRating([]models.FeedbackRecord{rec("a", 1, nil)}), 1e-9)
}

func TestMonthlyAverages(t *testing.T) {
	t.Run("always twelve entries", func(t *testing.T) {
		assert.Len(t, MonthlyAverages(nil, 2024), 12)

		var many []models.FeedbackRecord
		for i := 0; i < 1000; i++ {
			many = append(many, rec("", i%5+1, at(2024, time.Month(i%12+1), 1)))
		}
		assert.Len(t, MonthlyAverages(many, 2024), 12)
	})

	t.Run("missing timestamps never counted", func(t *testing.T) {
		got := MonthlyAverages([]models.FeedbackRecord{rec("a", 5, nil)}, 2024)
		assert.Equal(t, make([]float64, 12), got)
	})

	t.Run("buckets by month of reference year only", func(t *testing.T) {
		records := []models.FeedbackRecord{
			rec("a", 5, at(2024, time.January, 3)),
			rec("b", 4, at(2024, time.January, 20)),
			rec("c", 2, at(2024, time.March, 1)),
			rec("d", 1, at(2023, time.March, 1)),
			rec("e", 3, at(2024, time.December, 31)),
		}

		got := MonthlyAverages(records, 2024)

		assert.InDelta(t, 4.5, got[0], 1e-9)
		assert.Equal(t, 0.0, got[1])
		assert.InDelta(t, 2.0, got[2], 1e-9)
		assert.InDelta(t, 3.0, got[11], 1e-9)
	})

	t.Run("location shifts month boundary", func(t *testing.T) {
		saoPaulo := time.FixedZone("BRT", -3*60*60)
		ts := time.Date(2024, time.February, 1, 1, 0, 0, 0, time.UTC)
		records := []models.FeedbackRecord{rec("a", 5, &ts)}

		utc := MonthlyAveragesIn(records, 2024, time.UTC)
		local := MonthlyAveragesIn(records, 2024, saoPaulo)

		assert.Equal(t, 5.0, utc[1])
		assert.Equal(t, 5.0, local[0])
		assert.Equal(t, 0.0, local[1])
	})
}

func TestTagCounts(t *testing.T) {
	records := []models.FeedbackRecord{
		rec("a", 5, nil, "atendimento_otimo", "preco_bom"),
		rec("b", 4, nil, "atendimento_otimo"),
		rec("c", 2, nil, "unknown_tag"),
	}

	got := TagCounts(records)

	require.Len(t, got, 8)
	assert.Equal(t, "atendimento_otimo", got[0].Category.ID)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "preco_bom", got[4].Category.ID)
	assert.Equal(t, 1, got[4].Count)

	total := 0
	for _, tc := range got {
		total += tc.Count
	}
	assert.Equal(t, 3, total)
}
