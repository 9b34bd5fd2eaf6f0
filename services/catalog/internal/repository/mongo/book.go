// Package mongo implements the repositories on MongoDB.
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
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
)

// Collection names.
const (
	BooksCollection   = "books"
	ReviewsCollection = "reviews"
	UsersCollection   = "users"
)

// BookRepository implements repository.BookRepository on MongoDB.
type BookRepository struct {
	coll *driver.Collection
}

// NewBookRepository creates a book repository on db.
func NewBookRepository(db *driver.Database) *BookRepository {
	return &BookRepository{coll: db.Collection(BooksCollection)}
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	if _, err := r.coll.InsertOne(ctx, newBookDoc(book)); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("book", "id", book.ID)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// aggregate runs stages and decodes the resulting books.
func (r *BookRepository) aggregate(ctx context.Context, stages driver.Pipeline) ([]domain.RatedBook, error) {
	cursor, err := r.coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("aggregate books: %w", err)
	}
	var docs []bookDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}

	out := make([]domain.RatedBook, len(docs))
	for i := range docs {
		out[i] = docs[i].rated()
	}
	return out, nil
}

func withRatings(prefix ...bson.D) driver.Pipeline {
	return append(driver.Pipeline(prefix), translate(query.Pipeline{query.ComputeRating{}})...)
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.RatedBook, error) {
	books, err := r.aggregate(ctx, withRatings(match(bson.D{{Key: "_id", Value: id}})))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, apperrors.NotFound("book", id)
	}
	return &books[0], nil
}

func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.RatedBook, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.aggregate(ctx, withRatings(match(bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})))
}

func (r *BookRepository) Query(ctx context.Context, p query.Pipeline) ([]domain.RatedBook, error) {
	return r.aggregate(ctx, translate(p))
}

func (r *BookRepository) Sample(ctx context.Context) (*domain.RatedBook, error) {
	books, err := r.aggregate(ctx, withRatings(bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}}))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

func (r *BookRepository) DateSpan(ctx context.Context) (domain.DateSpan, error) {
	var res struct {
		Min *time.Time `bson:"min"`
		Max *time.Time `bson:"max"`
	}
	found, err := r.group(ctx, "$publishDate", &res)
	if err != nil || !found {
		return domain.DateSpan{}, err
	}
	return domain.DateSpan{Earliest: res.Min, Latest: res.Max}, nil
}

func (r *BookRepository) PageSpan(ctx context.Context) (domain.PageSpan, error) {
	var res struct {
		Min int `bson:"min"`
		Max int `bson:"max"`
	}
	found, err := r.group(ctx, "$pageCount", &res)
	if err != nil || !found {
		return domain.PageSpan{}, err
	}
	return domain.PageSpan{Least: res.Min, Most: res.Max}, nil
}

// group decodes the min and max of field across the collection into dst.
// found is false for an empty collection.
func (r *BookRepository) group(ctx context.Context, field string, dst any) (bool, error) {
	cursor, err := r.coll.Aggregate(ctx, driver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "min", Value: bson.D{{Key: "$min", Value: field}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: field}}},
		}}},
	})
	if err != nil {
		return false, fmt.Errorf("group books by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return false, cursor.Err()
	}
	if err := cursor.Decode(dst); err != nil {
		return false, fmt.Errorf("decode %s span: %w", field, err)
	}
	return true, nil
}

// AdjustRatings applies all deltas in one update so both buckets of a
// rating change move together.
func (r *BookRepository) AdjustRatings(ctx context.Context, id string, deltas map[int]int64) (domain.Histogram, error) {
	update := adjustRatingsUpdate(deltas, time.Now().UTC())

	var doc bookDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return domain.Histogram{}, apperrors.NotFound("book", id)
	}
	if err != nil {
		return domain.Histogram{}, fmt.Errorf("adjust ratings: %w", err)
	}
	return doc.Ratings.histogram(), nil
}
