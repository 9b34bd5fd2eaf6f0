package memory

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
)

// BookRepository is an in-memory repository.BookRepository.
type BookRepository struct {
	mu    sync.RWMutex
	books map[string]domain.Book
}

// NewBookRepository creates an empty book store.
func NewBookRepository() *BookRepository {
	return &BookRepository{books: make(map[string]domain.Book)}
}

func (r *BookRepository) Create(_ context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.books[book.ID]; exists {
		return apperrors.AlreadyExists("book", "id", book.ID)
	}
	r.books[book.ID] = cloneBook(*book)
	return nil
}

func (r *BookRepository) GetByID(_ context.Context, id string) (*domain.RatedBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok {
		return nil, apperrors.NotFound("book", id)
	}
	rated := domain.Rate(cloneBook(b))
	return &rated, nil
}

func (r *BookRepository) GetByIDs(_ context.Context, ids []string) ([]domain.RatedBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RatedBook, 0, len(ids))
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			out = append(out, domain.Rate(cloneBook(b)))
		}
	}
	return out, nil
}

// snapshot copies every book in id order.
func (r *BookRepository) snapshot() []domain.Book {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, cloneBook(b))
	}
	slices.SortFunc(out, func(a, b domain.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *BookRepository) Query(_ context.Context, p query.Pipeline) ([]domain.RatedBook, error) {
	return query.Evaluate(p, r.snapshot())
}

func (r *BookRepository) Sample(_ context.Context) (*domain.RatedBook, error) {
	books := r.snapshot()
	if len(books) == 0 {
		return nil, nil
	}
	rated := domain.Rate(books[rand.IntN(len(books))]) // #nosec G404 -- sampling, not security
	return &rated, nil
}

func (r *BookRepository) DateSpan(_ context.Context) (domain.DateSpan, error) {
	var span domain.DateSpan
	for _, b := range r.snapshot() {
		d := b.PublishDate
		if d == nil {
			continue
		}
		if span.Earliest == nil || d.Before(*span.Earliest) {
			span.Earliest = d
		}
		if span.Latest == nil || d.After(*span.Latest) {
			span.Latest = d
		}
	}
	return span, nil
}

func (r *BookRepository) PageSpan(_ context.Context) (domain.PageSpan, error) {
	books := r.snapshot()
	if len(books) == 0 {
		return domain.PageSpan{}, nil
	}
	span := domain.PageSpan{Least: books[0].PageCount, Most: books[0].PageCount}
	for _, b := range books[1:] {
		span.Least = min(span.Least, b.PageCount)
		span.Most = max(span.Most, b.PageCount)
	}
	return span, nil
}

func (r *BookRepository) AdjustRatings(_ context.Context, id string, deltas map[int]int64) (domain.Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return domain.Histogram{}, apperrors.NotFound("book", id)
	}
	for star, d := range deltas {
		b.Ratings.Add(star, d)
	}
	r.books[id] = b
	return b.Ratings, nil
}
