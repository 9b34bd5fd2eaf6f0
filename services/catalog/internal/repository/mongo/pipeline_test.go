package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
)

func ptr[T any](v T) *T { return &v }

func stageNames(stages []bson.D) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s[0].Key
	}
	return out
}

func TestTranslate_EmptyFilter(t *testing.T) {
	stages := translate(query.Build(domain.FilterInput{}))
	assert.Equal(t, []string{"$addFields", "$addFields", "$addFields", "$unset", "$sort"}, stageNames(stages))
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}}, stages[4])
}

func TestTranslate_TextMatch(t *testing.T) {
	stages := translate(query.Pipeline{query.TextMatch{Text: "game"}})
	require.Len(t, stages, 1)

	want := bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "title", Value: primitive.Regex{Pattern: "game", Options: "i"}}},
		bson.D{{Key: "description", Value: primitive.Regex{Pattern: `\bgame\b`, Options: "i"}}},
	}}}}}
	assert.Equal(t, want, stages[0])
}

func TestTranslate_RangesAndSets(t *testing.T) {
	before := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	stages := translate(query.Pipeline{
		query.DateRange{Before: &before, After: &after},
		query.SetMembership{Field: query.FieldAuthors, Values: []string{"Le Guin"}},
		query.SetMembership{Field: query.FieldPublisher, Values: []string{"Ace"}},
		query.PageRange{Min: ptr(100)},
	})
	require.Len(t, stages, 4)

	assert.Equal(t, match(bson.D{{Key: "publishDate", Value: bson.D{
		{Key: "$lt", Value: before},
		{Key: "$gt", Value: after},
	}}}), stages[0])
	assert.Equal(t, match(bson.D{{Key: "authors", Value: bson.D{{Key: "$in", Value: []string{"Le Guin"}}}}}), stages[1])
	assert.Equal(t, match(bson.D{{Key: "publisher", Value: bson.D{{Key: "$in", Value: []string{"Ace"}}}}}), stages[2])
	assert.Equal(t, match(bson.D{{Key: "pageCount", Value: bson.D{{Key: "$gte", Value: 100}}}}), stages[3])
}

func TestTranslate_SortStages(t *testing.T) {
	stages := translate(query.Pipeline{query.Sort{Spec: &domain.SortSpec{Field: domain.SortByTitle, Direction: domain.SortDesc}}})
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "title", Value: -1}, {Key: "_id", Value: 1}}}}, stages[0])

	stages = translate(query.Pipeline{query.Sort{Spec: &domain.SortSpec{Field: domain.SortByPublisher, Direction: domain.SortAsc}}})
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "publisher", Value: 1}, {Key: "_id", Value: 1}}}}, stages[0])

	stages = translate(query.Pipeline{query.Sort{Spec: &domain.SortSpec{Field: domain.SortByAuthor, Direction: domain.SortAsc}}})
	assert.Equal(t, []string{"$addFields", "$sort", "$unset"}, stageNames(stages))
	assert.Equal(t, bson.D{{Key: "sortAuthor", Value: 1}, {Key: "_id", Value: 1}}, stages[1][0].Value)
}

func TestComputeRatingStages_Rounding(t *testing.T) {
	stages := computeRatingStages()
	require.Len(t, stages, 4)

	rounded := stages[2][0].Value.(bson.D)[0]
	assert.Equal(t, "roundedAverageRating", rounded.Key)
	assert.Equal(t, bson.D{{Key: "$floor", Value: bson.D{{Key: "$add", Value: bson.A{"$averageRating", 0.5}}}}}, rounded.Value)

	total := stages[0][0].Value.(bson.D)[0]
	assert.Equal(t, "totalRatings", total.Key)
	assert.Len(t, total.Value.(bson.D)[0].Value, domain.MaxStar)
}

func TestAdjustRatingsUpdate_ClampsAtZero(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	update := adjustRatingsUpdate(map[int]int64{2: -1, 4: 1, 5: 0}, now)
	require.Len(t, update, 1)
	require.Equal(t, "$set", update[0][0].Key)

	set := update[0][0].Value.(bson.D)
	assert.Equal(t, []string{"updatedAt", "ratings.2", "ratings.4"}, stageNames(splitFields(set)))
	assert.Equal(t, now, set[0].Value)

	want := bson.D{{Key: "$max", Value: bson.A{int64(0),
		bson.D{{Key: "$add", Value: bson.A{bucketValue(2), int64(-1)}}},
	}}}
	assert.Equal(t, want, set[1].Value)
}

func TestBucketValue_IgnoresNegativeCounts(t *testing.T) {
	want := bson.D{{Key: "$max", Value: bson.A{int64(0),
		bson.D{{Key: "$ifNull", Value: bson.A{"$ratings.3", int64(0)}}},
	}}}
	assert.Equal(t, want, bucketValue(3))
}

func splitFields(d bson.D) []bson.D {
	out := make([]bson.D, len(d))
	for i, e := range d {
		out[i] = bson.D{e}
	}
	return out
}

func TestBookDoc_RoundTrip(t *testing.T) {
	published := time.Date(1969, 3, 1, 0, 0, 0, 0, time.UTC)
	book := domain.Book{
		ID:          "b-1",
		Title:       "The Left Hand of Darkness",
		Authors:     []string{"Ursula K. Le Guin"},
		PublishDate: &published,
		Series:      &domain.Series{Name: "Hainish Cycle", Position: 4},
		Ratings:     domain.Histogram{1, 0, 2, 0, 7},
	}

	raw, err := bson.Marshal(newBookDoc(&book))
	require.NoError(t, err)

	ratings := bson.Raw(raw).Lookup("ratings", "5")
	assert.Equal(t, int64(7), ratings.Int64())
	assert.Empty(t, bson.Raw(raw).Lookup("averageRating").Value, "derived fields are not stored")

	var doc bookDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.book()
	assert.Equal(t, book.Ratings, got.Ratings)
	assert.Equal(t, book.Series, got.Series)
	assert.Equal(t, []string{}, got.Genres)
}

func TestRatingsDoc_ClampsNegative(t *testing.T) {
	assert.Equal(t, domain.Histogram{0, 1, 0, 0, 0}, ratingsDoc{One: -2, Two: 1}.histogram())
}

func TestReviewFilter(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "bookId", Value: "b"}}, reviewFilter(domain.ReviewQuery{BookID: "b"}))
	assert.Equal(t,
		bson.D{{Key: "bookId", Value: "b"}, {Key: "userId", Value: bson.D{{Key: "$ne", Value: "u"}}}},
		reviewFilter(domain.ReviewQuery{BookID: "b", Mode: domain.ReviewsAvoidUser, UserID: "u"}),
	)
	assert.Equal(t,
		bson.D{{Key: "bookId", Value: "b"}, {Key: "userId", Value: "u"}},
		reviewFilter(domain.ReviewQuery{BookID: "b", Mode: domain.ReviewsFocusUser, UserID: "u"}),
	)
}
