package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/utafrali/bookcatalog/pkg/kafka"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// Kafka topics for catalog domain events.
var (
	TopicReviewCreated     = pkgkafka.Topic("review", "created")
	TopicReviewUpdated     = pkgkafka.Topic("review", "updated")
	TopicBookRatingChanged = pkgkafka.Topic("book", "rating_changed")
	TopicBookImported      = pkgkafka.Topic("book", "imported")
)

const (
	AggregateTypeReview = "review"
	AggregateTypeBook   = "book"
)

// SourceCatalogService identifies events emitted by this service.
const SourceCatalogService = "catalog-service"

// ReviewData is the payload of review.created and review.updated.
type ReviewData struct {
	ID          string    `json:"id"`
	BookID      string    `json:"book_id"`
	UserID      string    `json:"user_id"`
	Rating      float64   `json:"rating"`
	PriorRating *float64  `json:"prior_rating,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// RatingChangedData is the payload of book.rating_changed.
type RatingChangedData struct {
	BookID        string        `json:"book_id"`
	Ratings       map[int]int64 `json:"ratings"`
	TotalRatings  int64         `json:"total_ratings"`
	AverageRating float64       `json:"average_rating"`
}

// Publisher sends an envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events. A Producer without a
// Publisher drops every event, which is how the service runs when Kafka
// is not configured.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
// kafka may be nil.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Enabled reports whether events leave the process.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.ID, AggregateTypeReview, reviewData(r, nil))
}

// PublishReviewUpdated publishes a review.updated event carrying the
// rating the review had before the change.
func (p *Producer) PublishReviewUpdated(ctx context.Context, change domain.ReviewChange) error {
	prior := change.PriorRating
	return p.publish(ctx, TopicReviewUpdated, change.Review.ID, AggregateTypeReview, reviewData(change.Review, &prior))
}

// PublishRatingChanged publishes the histogram a book holds after a
// rating write.
func (p *Producer) PublishRatingChanged(ctx context.Context, bookID string, ratings domain.Histogram) error {
	summary := domain.Aggregate(ratings)
	data := RatingChangedData{
		BookID:        bookID,
		Ratings:       ratings.Buckets(),
		TotalRatings:  summary.TotalRatings,
		AverageRating: summary.AverageRating,
	}
	return p.publish(ctx, TopicBookRatingChanged, bookID, AggregateTypeBook, data)
}

func reviewData(r *domain.Review, prior *float64) ReviewData {
	return ReviewData{
		ID:          r.ID,
		BookID:      r.BookID,
		UserID:      r.UserID,
		Rating:      r.Rating,
		PriorRating: prior,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}
