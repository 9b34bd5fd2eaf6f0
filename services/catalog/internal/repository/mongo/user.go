package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// UserRepository implements repository.UserRepository on MongoDB.
type UserRepository struct {
	coll *driver.Collection
}

// NewUserRepository creates a user repository on db.
func NewUserRepository(db *driver.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.coll.InsertOne(ctx, newUserDoc(user)); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("user", "id", user.ID)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u := doc.user()
	return &u, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]domain.User, len(docs))
	for i, d := range docs {
		out[i] = d.user()
	}
	return out, nil
}

func (r *UserRepository) GetBySecret(ctx context.Context, secret string) (*domain.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "secret", Value: secret}}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, apperrors.Unauthorized("unknown secret")
	}
	if err != nil {
		return nil, fmt.Errorf("find user by secret: %w", err)
	}
	u := doc.user()
	return &u, nil
}

func shelfField(s domain.Shelf) string {
	if s == domain.ShelfHaveRead {
		return "haveRead"
	}
	return "wantToRead"
}

func (r *UserRepository) Shelve(ctx context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error) {
	return r.update(ctx, userID, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: shelfField(shelf), Value: bookID}}},
		{Key: "$pull", Value: bson.D{{Key: shelfField(shelf.Other()), Value: bookID}}},
	})
}

func (r *UserRepository) Unshelve(ctx context.Context, userID, bookID string, shelf domain.Shelf) (*domain.User, error) {
	return r.update(ctx, userID, bson.D{
		{Key: "$pull", Value: bson.D{{Key: shelfField(shelf), Value: bookID}}},
	})
}

func (r *UserRepository) update(ctx context.Context, userID string, update bson.D) (*domain.User, error) {
	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: userID}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("update user shelves: %w", err)
	}
	u := doc.user()
	return &u, nil
}
