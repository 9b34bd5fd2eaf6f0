package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/pagination"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// ReviewRepository implements repository.ReviewRepository on MongoDB.
type ReviewRepository struct {
	coll *driver.Collection
}

// NewReviewRepository creates a review repository on db.
func NewReviewRepository(db *driver.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(ReviewsCollection)}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if _, err := r.coll.InsertOne(ctx, newReviewDoc(review)); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("review", "id", review.ID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, nil, id)
}

func (r *ReviewRepository) FindByBookAndUser(ctx context.Context, bookID, userID string) (*domain.Review, error) {
	return r.findOne(ctx,
		bson.D{{Key: "bookId", Value: bookID}, {Key: "userId", Value: userID}},
		options.FindOne().SetSort(newestFirst),
		bookID+"/"+userID,
	)
}

func (r *ReviewRepository) findOne(ctx context.Context, filter bson.D, opts *options.FindOneOptions, key string) (*domain.Review, error) {
	var doc reviewDoc
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, apperrors.NotFound("review", key)
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	rv := doc.review()
	return &rv, nil
}

// Update swaps in the new values and reads back the prior document, so the
// prior rating comes from the same atomic write.
func (r *ReviewRepository) Update(ctx context.Context, id string, rating float64, description string) (domain.ReviewChange, error) {
	now := time.Now().UTC()
	var before reviewDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: rating},
			{Key: "description", Value: description},
			{Key: "updatedAt", Value: now},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, driver.ErrNoDocuments) {
		return domain.ReviewChange{}, apperrors.NotFound("review", id)
	}
	if err != nil {
		return domain.ReviewChange{}, fmt.Errorf("update review: %w", err)
	}

	after := before.review()
	after.Rating = rating
	after.Description = description
	after.UpdatedAt = now
	return domain.ReviewChange{Review: &after, PriorRating: before.Rating}, nil
}

func reviewFilter(q domain.ReviewQuery) bson.D {
	filter := bson.D{{Key: "bookId", Value: q.BookID}}
	switch q.Mode {
	case domain.ReviewsAvoidUser:
		filter = append(filter, bson.E{Key: "userId", Value: bson.D{{Key: "$ne", Value: q.UserID}}})
	case domain.ReviewsFocusUser:
		filter = append(filter, bson.E{Key: "userId", Value: q.UserID})
	}
	return filter
}

func (r *ReviewRepository) List(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, int, error) {
	filter := reviewFilter(q)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	p := pagination.Params{Offset: q.Offset, Limit: q.Limit}
	cursor, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(newestFirst).
		SetSkip(int64(p.Skip())).
		SetLimit(int64(p.Limit)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("find reviews: %w", err)
	}
	var docs []reviewDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}

	out := make([]domain.Review, len(docs))
	for i, d := range docs {
		out[i] = d.review()
	}
	return out, int(total), nil
}
