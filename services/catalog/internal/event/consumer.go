package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	pkgkafka "github.com/utafrali/bookcatalog/pkg/kafka"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// BookImportedData is the payload of book.imported, produced by the
// bulk importer.
type BookImportedData struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Authors     []string       `json:"authors"`
	Genres      []string       `json:"genres"`
	Publisher   string         `json:"publisher"`
	PageCount   int            `json:"page_count"`
	PublishDate *time.Time     `json:"publish_date,omitempty"`
	ISBN        string         `json:"isbn"`
	Language    string         `json:"language"`
	Format      string         `json:"format"`
	Series      *domain.Series `json:"series,omitempty"`
}

// BookCreator is the catalog operation the consumer drives.
type BookCreator interface {
	CreateBook(ctx context.Context, in domain.NewBook) (*domain.RatedBook, error)
}

// Consumer turns book.imported events into catalog books.
type Consumer struct {
	books  BookCreator
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the catalog service.
func NewConsumer(books BookCreator, logger *slog.Logger) *Consumer {
	return &Consumer{books: books, logger: logger}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicBookImported:
		return c.handleBookImported(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleBookImported creates the book. A book that already exists counts
// as imported so a replayed event settles instead of landing in the DLQ.
func (c *Consumer) handleBookImported(ctx context.Context, event *pkgkafka.Event) error {
	var data BookImportedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	book, err := c.books.CreateBook(ctx, domain.NewBook{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Authors:     data.Authors,
		Genres:      data.Genres,
		Publisher:   data.Publisher,
		PageCount:   data.PageCount,
		PublishDate: data.PublishDate,
		ISBN:        data.ISBN,
		Language:    data.Language,
		Format:      data.Format,
		Series:      data.Series,
	})
	switch {
	case errors.Is(err, apperrors.ErrAlreadyExists):
		c.logger.InfoContext(ctx, "imported book already present",
			slog.String("book_id", data.ID),
		)
		return nil
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.logger.WarnContext(ctx, "dropping invalid imported book",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	case err != nil:
		return fmt.Errorf("create book from imported event: %w", err)
	}

	c.logger.InfoContext(ctx, "created book from imported event",
		slog.String("book_id", book.ID),
	)
	return nil
}
