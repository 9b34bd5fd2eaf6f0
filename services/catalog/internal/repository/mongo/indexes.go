package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSpecs lists the indexes each collection needs.
func indexSpecs() map[string][]driver.IndexModel {
	return map[string][]driver.IndexModel{
		BooksCollection: {
			{Keys: bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "publisher", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "authors", Value: 1}}},
			{Keys: bson.D{{Key: "publishDate", Value: 1}}},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "userId", Value: 1}}},
			{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "secret", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates missing indexes. Existing identical indexes are
// left alone by the server.
func EnsureIndexes(ctx context.Context, db *driver.Database) error {
	for coll, models := range indexSpecs() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
