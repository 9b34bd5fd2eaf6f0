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
	"github.com/utafrali/bookcatalog/services/catalog/internal/event"
	"github.com/utafrali/bookcatalog/services/catalog/internal/ratelimit"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
)

// MaxDescriptionLength bounds review text.
const MaxDescriptionLength = 5000

// CreateReviewInput holds the parameters for creating a review. CallerID
// is the authenticated user, or empty for an anonymous request.
type CreateReviewInput struct {
	CallerID    string `json:"-"`
	UserID      string `json:"userUUID" validate:"required"`
	BookID      string `json:"bookID" validate:"required"`
	Description string `json:"description" validate:"max=5000"`
	Rating      int    `json:"rating" validate:"min=1,max=5"`
}

// UpdateReviewInput holds the parameters for updating a review.
type UpdateReviewInput struct {
	CallerID    string `json:"-"`
	ReviewID    string `json:"reviewUUID" validate:"required"`
	Description string `json:"description" validate:"max=5000"`
	Rating      int    `json:"rating" validate:"min=1,max=5"`
}

// ReviewDetail is a review with its author and book resolved. Either may
// be nil when the referenced document no longer exists.
type ReviewDetail struct {
	domain.Review
	User *domain.User
	Book *domain.RatedBook
}

// ReviewPage is one window of a book's reviews.
type ReviewPage struct {
	Reviews    []ReviewDetail
	Total      int
	Pagination pagination.Info
}

// ReviewService implements review writes and the rating histogram updates
// that follow them.
type ReviewService struct {
	reviews  repository.ReviewRepository
	books    repository.BookRepository
	users    repository.UserRepository
	limiter  ratelimit.Limiter
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	limiter ratelimit.Limiter,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &ReviewService{
		reviews:  reviews,
		books:    books,
		users:    users,
		limiter:  limiter,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func validateInput(in any) error {
	if err := validator.Validate(in); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}

func authorize(callerID, ownerID string) error {
	if callerID != "" && callerID != ownerID {
		return apperrors.Forbidden("cannot write reviews on behalf of another user")
	}
	return nil
}

// throttle applies the per-user mutation limit. A limiter outage lets the
// write through.
func (s *ReviewService) throttle(ctx context.Context, userID string) error {
	ok, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !ok {
		mutationsThrottled.Inc()
		return apperrors.RateLimited("too many review changes, try again later")
	}
	return nil
}

// adjust applies the histogram deltas and returns the resulting average.
// The review write has already happened, so a failure here leaves the two
// documents out of step; it is logged with both ids.
func (s *ReviewService) adjust(ctx context.Context, reviewID, bookID string, deltas map[int]int64) (float64, error) {
	hist, err := s.books.AdjustRatings(ctx, bookID, deltas)
	if err != nil {
		histogramAdjustments.WithLabelValues("failed").Inc()
		s.logger.ErrorContext(ctx, "rating histogram adjustment failed after review write",
			slog.String("review_id", reviewID),
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("adjust ratings: %w", err)
	}
	histogramAdjustments.WithLabelValues("applied").Inc()

	if err := s.producer.PublishRatingChanged(ctx, bookID, hist); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.rating_changed event",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}
	return domain.Aggregate(hist).AverageRating, nil
}

// CreateReview stores a new review and counts its rating into the book's
// histogram. It returns the book's new average rating. A second review by
// the same user on the same book is accepted.
func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (float64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}
	if err := authorize(in.CallerID, in.UserID); err != nil {
		return 0, err
	}
	if err := s.throttle(ctx, in.UserID); err != nil {
		return 0, err
	}

	if _, err := s.books.GetByID(ctx, in.BookID); err != nil {
		return 0, fmt.Errorf("get book: %w", err)
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}

	now := s.now().UTC()
	review := &domain.Review{
		ID:          uuid.NewString(),
		BookID:      in.BookID,
		UserID:      in.UserID,
		Rating:      float64(in.Rating),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return 0, fmt.Errorf("create review: %w", err)
	}
	reviewsCreated.Inc()

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	avg, err := s.adjust(ctx, review.ID, review.BookID, map[int]int64{in.Rating: 1})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Int("rating", in.Rating),
	)
	return avg, nil
}

// UpdateReview replaces a review's text and rating. When the rating moves,
// the old bucket is decremented and the new one incremented in a single
// update and the new average is returned. An unchanged rating returns nil
// and leaves the histogram alone.
func (s *ReviewService) UpdateReview(ctx context.Context, in UpdateReviewInput) (*float64, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.reviews.GetByID(ctx, in.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if err := authorize(in.CallerID, existing.UserID); err != nil {
		return nil, err
	}
	if err := s.throttle(ctx, existing.UserID); err != nil {
		return nil, err
	}

	change, err := s.reviews.Update(ctx, in.ReviewID, float64(in.Rating), in.Description)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	changed := change.RatingChanged()
	reviewsUpdated.WithLabelValues(fmt.Sprint(changed)).Inc()
	if err := s.producer.PublishReviewUpdated(ctx, change); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", change.Review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", change.Review.ID),
		slog.Bool("rating_changed", changed),
	)
	if !changed {
		return nil, nil
	}

	prior := domain.RoundRating(change.PriorRating)
	avg, err := s.adjust(ctx, change.Review.ID, change.Review.BookID, map[int]int64{
		prior:     -1,
		in.Rating: 1,
	})
	if err != nil {
		return nil, err
	}
	return &avg, nil
}

// GetUserReview returns the newest review userID wrote for bookID, or a
// NOT_FOUND error when there is none.
func (s *ReviewService) GetUserReview(ctx context.Context, bookID, userID string) (*domain.Review, error) {
	if bookID == "" || userID == "" {
		return nil, apperrors.InvalidInput("book id and user id are required")
	}
	review, err := s.reviews.FindByBookAndUser(ctx, bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("find user review: %w", err)
	}
	return review, nil
}

// ListReviews pages through a book's reviews, newest first. Authors and
// books are loaded with one batched lookup each and attached in order.
func (s *ReviewService) ListReviews(ctx context.Context, q domain.ReviewQuery) (*ReviewPage, error) {
	page := pagination.Params{Offset: q.Offset, Limit: q.Limit}
	if err := page.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if q.BookID == "" {
		return nil, apperrors.InvalidInput("book id is required")
	}

	reviews, total, err := s.reviews.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	userIDs := make([]string, 0, len(reviews))
	bookIDs := make([]string, 0, 1)
	seenUser, seenBook := map[string]bool{}, map[string]bool{}
	for _, r := range reviews {
		if !seenUser[r.UserID] {
			seenUser[r.UserID] = true
			userIDs = append(userIDs, r.UserID)
		}
		if !seenBook[r.BookID] {
			seenBook[r.BookID] = true
			bookIDs = append(bookIDs, r.BookID)
		}
	}

	users := map[string]*domain.User{}
	books := map[string]*domain.RatedBook{}
	if len(reviews) > 0 {
		found, err := s.users.GetByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("load review authors: %w", err)
		}
		for i := range found {
			users[found[i].ID] = &found[i]
		}
		rated, err := s.books.GetByIDs(ctx, bookIDs)
		if err != nil {
			return nil, fmt.Errorf("load reviewed books: %w", err)
		}
		for i := range rated {
			books[rated[i].ID] = &rated[i]
		}
	}

	details := make([]ReviewDetail, len(reviews))
	for i, r := range reviews {
		details[i] = ReviewDetail{Review: r, User: users[r.UserID], Book: books[r.BookID]}
	}

	return &ReviewPage{
		Reviews:    details,
		Total:      total,
		Pagination: pagination.NewInfo(total, page),
	}, nil
}
