package service

import (
	"github.com/godilite/feedback-kiosk/internal/repository/models"
)

// RatingBucket is the count and share of one star value.
type RatingBucket struct {
	Star       int     `json:"star"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Distribution holds one bucket per star value, index 0 being 1 star.
type Distribution struct {
	Total   int            `json:"total"`
	Buckets []RatingBucket `json:"buckets"`
}

// Bucket returns the bucket for star, or a zero bucket when star is out of range.
func (d Distribution) Bucket(star int) RatingBucket {
	if star < models.MinRating || star > len(d.Buckets) {
		return RatingBucket{Star: star}
	}
	return d.Buckets[star-1]
}

type TagCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

// SeriesPoint is one bar or pie slice.
type SeriesPoint struct {
	Label      string  `json:"label"`
	Star       int     `json:"star"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

type LinePoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type ChartData struct {
	Bar  []SeriesPoint `json:"bar"`
	Pie  []SeriesPoint `json:"pie"`
	Line []LinePoint   `json:"line"`
}

// Summary is everything on the dashboard that does not depend on the list selection.
type Summary struct {
	StoreName       string       `json:"storeName"`
	TotalCount      int          `json:"totalCount"`
	AverageRating   float64      `json:"averageRating"`
	Distribution    Distribution `json:"distribution"`
	ReferenceYear   int          `json:"referenceYear"`
	MonthlyAverages []float64    `json:"monthlyAverages"`
	TagCounts       []TagCount   `json:"tagCounts"`
	Charts          ChartData    `json:"charts"`
}

// FeedbackItem is a record decorated with its resolved tag labels.
type FeedbackItem struct {
	models.FeedbackRecord
	Tags []models.Category `json:"tags"`
}

type ListPage struct {
	SelectedRating int            `json:"selectedRating"`
	CurrentPage    int            `json:"currentPage"`
	TotalPages     int            `json:"totalPages"`
	TotalFiltered  int            `json:"totalFiltered"`
	PageSize       int            `json:"pageSize"`
	Items          []FeedbackItem `json:"items"`
}

// DerivedView is the full dashboard payload for one snapshot and one list selection.
type DerivedView struct {
	Summary
	List    ListPage `json:"list"`
	Version uint64   `json:"version"`
	Stale   bool     `json:"stale"`
	Error   string   `json:"error,omitempty"`
}

// ViewQuery selects the list window and reference year. Zero values mean
// no rating filter, first page and the current year.
type ViewQuery struct {
	Rating int `json:"rating" form:"rating"`
	Page   int `json:"page" form:"page"`
	Year   int `json:"year" form:"year"`
}
