package service

import (
	"github.com/godilite/feedback-kiosk/internal/repository/models"
)

const PageSize = 10

// ListView is the filter and pagination state of one dashboard consumer.
// It never reorders records; the source order (newest first) is kept.
type ListView struct {
	records        []models.FeedbackRecord
	selectedRating int
	currentPage    int
}

func NewListView(records []models.FeedbackRecord) *ListView {
	return &ListView{
		records:     records,
		currentPage: 1,
	}
}

// SetRecords swaps in a new snapshot and pulls the current page back into range.
func (v *ListView) SetRecords(records []models.FeedbackRecord) {
	v.records = records
	if total := v.TotalPages(); v.currentPage > total {
		v.currentPage = total
	}
}

// SetRatingFilter toggles the filter: selecting the active star clears it,
// any other star replaces it. The page always resets to 1. Stars outside
// 1..5 are ignored.
func (v *ListView) SetRatingFilter(star int) {
	if star < models.MinRating || star > models.MaxRating {
		return
	}
	if v.selectedRating == star {
		v.selectedRating = 0
	} else {
		v.selectedRating = star
	}
	v.currentPage = 1
}

// SetPage moves to page n when 1 <= n <= TotalPages and reports whether it did.
func (v *ListView) SetPage(n int) bool {
	if n < 1 || n > v.TotalPages() {
		return false
	}
	v.currentPage = n
	return true
}

// SelectedRating returns the active star, or 0 when no filter is set.
func (v *ListView) SelectedRating() int {
	return v.selectedRating
}

func (v *ListView) CurrentPage() int {
	return v.currentPage
}

func (v *ListView) FilteredRecords() []models.FeedbackRecord {
	if v.selectedRating == 0 {
		return v.records
	}
	out := make([]models.FeedbackRecord, 0, len(v.records))
	for _, r := range v.records {
		if r.Rating == v.selectedRating {
			out = append(out, r)
		}
	}
	return out
}

func (v *ListView) TotalPages() int {
	return totalPages(len(v.FilteredRecords()))
}

func (v *ListView) VisibleRecords() []models.FeedbackRecord {
	filtered := v.FilteredRecords()
	return pageWindow(filtered, v.currentPage)
}

// Page renders the current selection with tag labels resolved.
func (v *ListView) Page() ListPage {
	filtered := v.FilteredRecords()
	visible := pageWindow(filtered, v.currentPage)

	items := make([]FeedbackItem, len(visible))
	for i, r := range visible {
		items[i] = FeedbackItem{FeedbackRecord: r, Tags: resolveTags(r.SelectedOptions)}
	}

	return ListPage{
		SelectedRating: v.selectedRating,
		CurrentPage:    v.currentPage,
		TotalPages:     totalPages(len(filtered)),
		TotalFiltered:  len(filtered),
		PageSize:       PageSize,
		Items:          items,
	}
}

func totalPages(n int) int {
	pages := (n + PageSize - 1) / PageSize
	return max(1, pages)
}

func pageWindow(records []models.FeedbackRecord, page int) []models.FeedbackRecord {
	start := (page - 1) * PageSize
	if start >= len(records) || start < 0 {
		return []models.FeedbackRecord{}
	}
	end := min(start+PageSize, len(records))
	return records[start:end]
}

func resolveTags(ids []string) []models.Category {
	tags := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := models.LookupCategory(id); ok {
			tags = append(tags, c)
		}
	}
	return tags
}
