package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/pagination"
	"github.com/utafrali/bookcatalog/pkg/validator"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/facet"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
)

// CatalogService answers book listing, facet and span queries.
type CatalogService struct {
	books  repository.BookRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(books repository.BookRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		books:  books,
		logger: logger,
		now:    time.Now,
	}
}

// BookPage is one window of a filtered listing.
type BookPage struct {
	Books      []domain.RatedBook
	TotalBooks int
}

// FilterCounts holds the three exclusion sets of one filter along with the
// facet counts derived from them. Genre counts come from the set that
// ignores the genre constraint and rating counts from the set that ignores
// the rating constraint, so each facet shows what toggling it would yield.
type FilterCounts struct {
	facet.ExclusionSets
	GenreCounts  []facet.ValueCount
	RatingCounts []facet.StarCount
}

// base runs the store-side part of a filter: everything except genres and
// minimum rating.
func (s *CatalogService) base(ctx context.Context, f domain.FilterInput) ([]domain.RatedBook, error) {
	if err := f.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	books, err := s.books.Query(ctx, query.Build(f))
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	return books, nil
}

// ListBooks returns the page of books matching every constraint of f.
// A page past the end is empty, not an error.
func (s *CatalogService) ListBooks(ctx context.Context, f domain.FilterInput, page pagination.Params) (*BookPage, error) {
	if err := page.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	base, err := s.base(ctx, f)
	if err != nil {
		return nil, err
	}
	matched := facet.MatchAll(base, facet.ConstraintsOf(f))

	return &BookPage{
		Books:      pagination.Slice(matched, page),
		TotalBooks: len(matched),
	}, nil
}

// FilterCounts partitions a single fetch of the base set, so the three
// sets always describe the same snapshot.
func (s *CatalogService) FilterCounts(ctx context.Context, f domain.FilterInput) (*FilterCounts, error) {
	base, err := s.base(ctx, f)
	if err != nil {
		return nil, err
	}
	sets := facet.Partition(base, facet.ConstraintsOf(f))

	return &FilterCounts{
		ExclusionSets: sets,
		GenreCounts:   facet.CountGenres(sets.GenresExcluded),
		RatingCounts:  facet.CountRatings(sets.MinRatingExcluded),
	}, nil
}

// RandomBook samples one book from the whole collection. It returns nil
// when the catalog is empty.
func (s *CatalogService) RandomBook(ctx context.Context) (*domain.RatedBook, error) {
	book, err := s.books.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample book: %w", err)
	}
	return book, nil
}

// DateSpan returns the earliest and latest publish dates in the catalog.
func (s *CatalogService) DateSpan(ctx context.Context) (domain.DateSpan, error) {
	span, err := s.books.DateSpan(ctx)
	if err != nil {
		return domain.DateSpan{}, fmt.Errorf("date span: %w", err)
	}
	return span, nil
}

// PageSpan returns the smallest and largest page counts in the catalog.
func (s *CatalogService) PageSpan(ctx context.Context) (domain.PageSpan, error) {
	span, err := s.books.PageSpan(ctx)
	if err != nil {
		return domain.PageSpan{}, fmt.Errorf("page span: %w", err)
	}
	return span, nil
}

// GetBook retrieves a book by its ID.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.RatedBook, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("book id is required")
	}
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book by id: %w", err)
	}
	return book, nil
}

// GetBooks retrieves books by id in the order requested, skipping ids that
// do not exist.
func (s *CatalogService) GetBooks(ctx context.Context, ids []string) ([]domain.RatedBook, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	books, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get books by ids: %w", err)
	}
	return orderByIDs(books, ids, func(b domain.RatedBook) string { return b.ID }), nil
}

// CreateBook adds a book with an empty rating histogram. The id is
// generated unless the input carries one.
func (s *CatalogService) CreateBook(ctx context.Context, in domain.NewBook) (*domain.RatedBook, error) {
	in.Normalize()
	if err := validator.Validate(in); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	book := &domain.Book{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Authors:     in.Authors,
		Genres:      in.Genres,
		Publisher:   in.Publisher,
		PageCount:   in.PageCount,
		PublishDate: in.PublishDate,
		ISBN:        in.ISBN,
		Language:    in.Language,
		Format:      in.Format,
		Series:      in.Series,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	booksCreated.Inc()

	s.logger.InfoContext(ctx, "book created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)

	rated := domain.Rate(*book)
	return &rated, nil
}

// orderByIDs arranges items to follow ids. Duplicate ids repeat the item;
// missing ids are skipped.
func orderByIDs[T any](items []T, ids []string, key func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[key(it)] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}
