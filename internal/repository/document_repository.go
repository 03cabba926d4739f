package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type feedbackDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Rating          int                `bson:"rating"`
	SelectedOptions []string           `bson:"selectedOptions"`
	Comment         string             `bson:"comment"`
	CreatedAt       *time.Time         `bson:"createdAt,omitempty"`
}

func (d feedbackDocument) record() models.FeedbackRecord {
	rec := models.FeedbackRecord{
		ID:              d.ID.Hex(),
		Rating:          d.Rating,
		SelectedOptions: d.SelectedOptions,
		Comment:         d.Comment,
	}
	if d.CreatedAt != nil {
		ts := d.CreatedAt.UTC()
		rec.CreatedAt = &ts
	}
	return rec
}

// DocumentRepository keeps feedback as documents in a mongo collection.
type DocumentRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
	now    func() time.Time
}

func NewDocumentRepository(coll *mongo.Collection, logger *zap.Logger) *DocumentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRepository{
		coll:   coll,
		logger: logger.Named("document_repository"),
		now:    time.Now,
	}
}

// ListFeedback returns every document ordered by createdAt descending.
// Documents without createdAt sort last.
func (r *DocumentRepository) ListFeedback(ctx context.Context) ([]models.FeedbackRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	defer cur.Close(ctx)

	var docs []feedbackDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}

	records := make([]models.FeedbackRecord, 0, len(docs))
	for _, doc := range docs {
		rec := doc.record()
		if !rec.HasValidRating() {
			r.logger.Warn("skipping feedback document with invalid rating",
				zap.String("id", rec.ID),
				zap.Int("rating", rec.Rating))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *DocumentRepository) InsertFeedback(ctx context.Context, sub models.Submission) (models.FeedbackRecord, error) {
	createdAt := r.now().UTC().Truncate(time.Millisecond)
	selected := sub.SelectedOptions
	if selected == nil {
		selected = []string{}
	}
	doc := feedbackDocument{
		ID:              primitive.NewObjectID(),
		Rating:          sub.Rating,
		SelectedOptions: selected,
		Comment:         sub.Comment,
		CreatedAt:       &createdAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("insert feedback: %w", err)
	}
	return doc.record(), nil
}

// Changes opens a change stream on the collection. It needs a replica set;
// standalone servers fail here and callers fall back to polling.
func (r *DocumentRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	stream, err := r.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			signal(out)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			r.logger.Warn("change stream ended", zap.Error(err))
		}
	}()
	return out, nil
}
