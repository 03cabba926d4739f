package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	// ChangesChannel is the postgres NOTIFY channel raised on every insert.
	ChangesChannel = "feedback_changes"
)

// FeedbackStore is the storage contract the live source polls.
type FeedbackStore interface {
	ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error)
	InsertFeedback(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error)
}

// FeedbackRepository keeps feedback in a relational table. sqlite3 and
// postgres are supported; they differ in placeholders, timestamp type and
// change notification.
type FeedbackRepository struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
	now    func() time.Time
}

func NewFeedbackRepository(db *sql.DB, driver string, logger *zap.Logger) *FeedbackRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackRepository{
		db:     db,
		driver: driver,
		logger: logger.Named("feedback_repository"),
		now:    time.Now,
	}
}

func (r *FeedbackRepository) postgres() bool {
	return r.driver == DriverPostgres
}

// EnsureSchema creates the feedback table and its ordering index.
func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	tsType := "TIMESTAMP"
	if r.postgres() {
		tsType = "TIMESTAMPTZ"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			rating INTEGER NOT NULL,
			selected_options TEXT NOT NULL DEFAULT '[]',
			comment TEXT NOT NULL DEFAULT '',
			created_at ` + tsType + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure feedback schema: %w", err)
		}
	}
	return nil
}

// ListFeedback returns every stored record, newest first. Rows without a
// timestamp sort last. Rows with a rating outside 1..5 are skipped.
func (r *FeedbackRepository) ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error) {
	const query = `
		SELECT id, rating, selected_options, comment, created_at
		FROM feedback
		ORDER BY created_at DESC NULLS LAST, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListFeedback: %w", err)
	}
	defer rows.Close()

	records := []models.FeedbackRecord{}
	for rows.Next() {
		var (
			rec       models.FeedbackRecord
			options   sql.NullString
			comment   sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Rating, &options, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ListFeedback: %w", err)
		}
		if !rec.HasValidRating() {
			r.logger.Warn("skipping feedback row with invalid rating",
				zap.String("id", rec.ID),
				zap.Int("rating", rec.Rating))
			continue
		}

		rec.Comment = comment.String
		rec.SelectedOptions = decodeOptions(options.String)
		if createdAt.Valid {
			ts := createdAt.Time.UTC()
			rec.CreatedAt = &ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListFeedback: %w", err)
	}

	return records, nil
}

// InsertFeedback stores sub with a generated id and the current time. On
// postgres the insert and its NOTIFY share a transaction.
func (r *FeedbackRepository) InsertFeedback(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	createdAt := r.now().UTC().Truncate(time.Microsecond)
	rec := models.FeedbackRecord{
		ID:              uuid.NewString(),
		Rating:          sub.Rating,
		SelectedOptions: append([]string{}, sub.SelectedOptions...),
		Comment:         sub.Comment,
		CreatedAt:       &createdAt,
	}

	options, err := json.Marshal(rec.SelectedOptions)
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("encode selected options: %w", err)
	}

	if !r.postgres() {
		const query = `INSERT INTO feedback (id, rating, selected_options, comment, created_at) VALUES (?, ?, ?, ?, ?)`
		if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Rating, string(options), rec.Comment, createdAt); err != nil {
			return models.FeedbackRecord{}, fmt.Errorf("exec InsertFeedback: %w", err)
		}
		return rec, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("begin InsertFeedback: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO feedback (id, rating, selected_options, comment, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, rec.ID, rec.Rating, string(options), rec.Comment, createdAt); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("exec InsertFeedback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangesChannel, rec.ID); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("notify InsertFeedback: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("commit InsertFeedback: %w", err)
	}

	return rec, nil
}

// decodeOptions tolerates legacy rows holding malformed JSON.
func decodeOptions(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
