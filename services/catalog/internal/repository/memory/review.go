package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/pagination"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// ReviewRepository is an in-memory repository.ReviewRepository.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	now     func() time.Time
}

// NewReviewRepository creates an empty review store.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		reviews: make(map[string]domain.Review),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reviews[review.ID]; exists {
		return apperrors.AlreadyExists("review", "id", review.ID)
	}
	r.reviews[review.ID] = *review
	return nil
}

func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return &rv, nil
}

func (r *ReviewRepository) FindByBookAndUser(ctx context.Context, bookID, userID string) (*domain.Review, error) {
	page, _, err := r.List(ctx, domain.ReviewQuery{
		BookID: bookID,
		Mode:   domain.ReviewsFocusUser,
		UserID: userID,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, apperrors.NotFound("review", bookID+"/"+userID)
	}
	return &page[0], nil
}

func (r *ReviewRepository) Update(_ context.Context, id string, rating float64, description string) (domain.ReviewChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return domain.ReviewChange{}, apperrors.NotFound("review", id)
	}
	prior := rv.Rating
	rv.Rating = rating
	rv.Description = description
	rv.UpdatedAt = r.now()
	r.reviews[id] = rv
	return domain.ReviewChange{Review: &rv, PriorRating: prior}, nil
}

func (r *ReviewRepository) List(_ context.Context, q domain.ReviewQuery) ([]domain.Review, int, error) {
	r.mu.RLock()
	matched := make([]domain.Review, 0)
	for _, rv := range r.reviews {
		if q.Matches(&rv) {
			matched = append(matched, rv)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	page := pagination.Slice(matched, pagination.Params{Offset: q.Offset, Limit: q.Limit})
	return slices.Clone(page), len(matched), nil
}
