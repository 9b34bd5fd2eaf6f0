package repository

import (
	"context"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
)

// BookRepository defines the interface for book persistence operations.
type BookRepository interface {
	// Create inserts a new book.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book. Returns apperrors.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.RatedBook, error)

	// GetByIDs retrieves the books that exist among ids, in no particular
	// order.
	GetByIDs(ctx context.Context, ids []string) ([]domain.RatedBook, error)

	// Query runs a pipeline over the whole collection and returns every
	// matching book in pipeline order.
	Query(ctx context.Context, p query.Pipeline) ([]domain.RatedBook, error)

	// Sample returns one uniformly chosen book, or nil when the collection
	// is empty.
	Sample(ctx context.Context) (*domain.RatedBook, error)

	// DateSpan returns the publish date range across all books.
	DateSpan(ctx context.Context) (domain.DateSpan, error)

	// PageSpan returns the page count range across all books.
	PageSpan(ctx context.Context) (domain.PageSpan, error)

	// AdjustRatings atomically applies per-star deltas to a book's histogram
	// and returns the updated histogram. Returns apperrors.ErrNotFound when
	// the book is absent.
	AdjustRatings(ctx context.Context, id string, deltas map[int]int64) (domain.Histogram, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review. Returns apperrors.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// FindByBookAndUser returns the most recent review of a book by a user.
	// Returns apperrors.ErrNotFound when the user has not reviewed it.
	FindByBookAndUser(ctx context.Context, bookID, userID string) (*domain.Review, error)

	// Update replaces rating and description and returns the stored review
	// together with the rating it had before.
	Update(ctx context.Context, id string, rating float64, description string) (domain.ReviewChange, error)

	// List returns one page of q ordered newest first, plus the total
	// number of matching reviews.
	List(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, int, error)
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user. Returns apperrors.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIDs retrieves the users that exist among ids.
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// GetBySecret resolves a bearer secret to its user. Returns
	// apperrors.ErrUnauthorized for an unknown secret.
	GetBySecret(ctx context.Context, secret string) (*domain.User, error)

	// Shelve puts bookID on shelf and removes it from the other shelf.
	Shelve(ctx context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error)

	// Unshelve removes bookID from shelf.
	Unshelve(ctx context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error)
}
