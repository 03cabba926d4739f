package service

import (
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/montanaflynn/stats"
)

const monthsPerYear = 12

func round1(v float64) float64 {
	r, err := stats.Round(v, 1)
	if err != nil {
		return 0
	}
	return r
}

func meanRating(ratings stats.Float64Data) float64 {
	m, err := stats.Mean(ratings)
	if err != nil {
		return 0
	}
	return round1(m)
}

// RatingsDistribution counts records per star value. Percentages are rounded
// to one decimal and are 0 for an empty list. Records with a rating outside
// 1..5 count towards Total but have no bucket.
func RatingsDistribution(records []models.FeedbackRecord) Distribution {
	d := Distribution{
		Total:   len(records),
		Buckets: make([]RatingBucket, models.MaxRating),
	}
	for i := range d.Buckets {
		d.Buckets[i].Star = i + 1
	}

	for _, r := range records {
		if r.HasValidRating() {
			d.Buckets[r.Rating-1].Count++
		}
	}

	if d.Total == 0 {
		return d
	}
	for i := range d.Buckets {
		d.Buckets[i].Percentage = round1(float64(d.Buckets[i].Count) / float64(d.Total) * 100)
	}
	return d
}

// AverageRating is the mean rating rounded to one decimal, 0 for an empty list.
func AverageRating(records []models.FeedbackRecord) float64 {
	ratings := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		ratings = append(ratings, float64(r.Rating))
	}
	return meanRating(ratings)
}

// MonthlyAverages returns the mean rating of each calendar month of
// referenceYear in UTC. Index 0 is January. Records without CreatedAt are
// skipped and empty months are 0.
func MonthlyAverages(records []models.FeedbackRecord, referenceYear int) []float64 {
	return MonthlyAveragesIn(records, referenceYear, time.UTC)
}

// MonthlyAveragesIn is MonthlyAverages with months bucketed in loc.
func MonthlyAveragesIn(records []models.FeedbackRecord, referenceYear int, loc *time.Location) []float64 {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make([]stats.Float64Data, monthsPerYear)
	for _, r := range records {
		if r.CreatedAt == nil {
			continue
		}
		t := r.CreatedAt.In(loc)
		if t.Year() != referenceYear {
			continue
		}
		m := int(t.Month()) - 1
		buckets[m] = append(buckets[m], float64(r.Rating))
	}

	out := make([]float64, monthsPerYear)
	for i, b := range buckets {
		out[i] = meanRating(b)
	}
	return out
}

// TagCounts counts how often each catalog tag was selected, in catalog order.
// Ids outside the catalog are ignored.
func TagCounts(records []models.FeedbackRecord) []TagCount {
	cats := models.Categories()
	index := make(map[string]int, len(cats))
	out := make([]TagCount, len(cats))
	for i, c := range cats {
		index[c.ID] = i
		out[i].Category = c
	}

	for _, r := range records {
		for _, id := range r.SelectedOptions {
			if i, ok := index[id]; ok {
				out[i].Count++
			}
		}
	}
	return out
}
