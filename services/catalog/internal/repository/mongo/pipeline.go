package mongo

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
)

// ratingField is the path of one histogram bucket.
func ratingField(star int) string {
	return "ratings." + strconv.Itoa(star)
}

// bucketValue reads one histogram bucket. Missing or negative counts read
// as zero, matching ratingsDoc.histogram.
func bucketValue(star int) bson.D {
	return bson.D{{Key: "$max", Value: bson.A{int64(0),
		bson.D{{Key: "$ifNull", Value: bson.A{"$" + ratingField(star), int64(0)}}},
	}}}
}

// adjustRatingsUpdate is an update pipeline applying deltas to the
// histogram in one write. A bucket never goes below zero.
func adjustRatingsUpdate(deltas map[int]int64, now time.Time) driver.Pipeline {
	set := bson.D{{Key: "updatedAt", Value: now}}
	for star := domain.MinStar; star <= domain.MaxStar; star++ {
		d, ok := deltas[star]
		if !ok || d == 0 {
			continue
		}
		set = append(set, bson.E{Key: ratingField(star), Value: bson.D{{Key: "$max", Value: bson.A{int64(0),
			bson.D{{Key: "$add", Value: bson.A{bucketValue(star), d}}},
		}}}})
	}
	return driver.Pipeline{{{Key: "$set", Value: set}}}
}

// translate renders a pipeline in the aggregation language.
func translate(p query.Pipeline) driver.Pipeline {
	out := make(driver.Pipeline, 0, len(p)+3)
	for _, stage := range p {
		switch s := stage.(type) {
		case query.TextMatch:
			out = append(out, match(bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "title", Value: primitive.Regex{Pattern: s.TitlePattern(), Options: "i"}}},
				bson.D{{Key: "description", Value: primitive.Regex{Pattern: s.DescriptionPattern(), Options: "i"}}},
			}}}))
		case query.DateRange:
			cond := bson.D{}
			if s.Before != nil {
				cond = append(cond, bson.E{Key: "$lt", Value: *s.Before})
			}
			if s.After != nil {
				cond = append(cond, bson.E{Key: "$gt", Value: *s.After})
			}
			out = append(out, match(bson.D{{Key: "publishDate", Value: cond}}))
		case query.SetMembership:
			out = append(out, match(bson.D{{Key: string(s.Field), Value: bson.D{{Key: "$in", Value: s.Values}}}}))
		case query.PageRange:
			cond := bson.D{}
			if s.Min != nil {
				cond = append(cond, bson.E{Key: "$gte", Value: *s.Min})
			}
			if s.Max != nil {
				cond = append(cond, bson.E{Key: "$lte", Value: *s.Max})
			}
			out = append(out, match(bson.D{{Key: "pageCount", Value: cond}}))
		case query.ComputeRating:
			out = append(out, computeRatingStages()...)
		case query.Sort:
			out = append(out, sortStages(s.Spec)...)
		}
	}
	return out
}

func match(filter bson.D) bson.D {
	return bson.D{{Key: "$match", Value: filter}}
}

// computeRatingStages derives totalRatings, averageRating and
// roundedAverageRating from the histogram. Rounding is floor(avg + 0.5),
// which is half away from zero for the non-negative averages here.
func computeRatingStages() []bson.D {
	counts := bson.A{}
	weighted := bson.A{}
	for star := domain.MinStar; star <= domain.MaxStar; star++ {
		bucket := bucketValue(star)
		counts = append(counts, bucket)
		weighted = append(weighted, bson.D{{Key: "$multiply", Value: bson.A{star, bucket}}})
	}

	return []bson.D{
		{{Key: "$addFields", Value: bson.D{
			{Key: "totalRatings", Value: bson.D{{Key: "$add", Value: counts}}},
			{Key: "weightedRatings", Value: bson.D{{Key: "$add", Value: weighted}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "averageRating", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$totalRatings", 0}}},
				0.0,
				bson.D{{Key: "$divide", Value: bson.A{"$weightedRatings", "$totalRatings"}}},
			}}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "roundedAverageRating", Value: bson.D{{Key: "$floor", Value: bson.D{
				{Key: "$add", Value: bson.A{"$averageRating", 0.5}},
			}}}},
		}}},
		{{Key: "$unset", Value: "weightedRatings"}},
	}
}

// sortStages orders by the spec with _id as the final key. Author order
// uses the first listed author.
func sortStages(spec *domain.SortSpec) []bson.D {
	if spec == nil {
		return []bson.D{{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}}}
	}

	dir := 1
	if spec.Direction == domain.SortDesc {
		dir = -1
	}

	switch spec.Field {
	case domain.SortByAuthor:
		return []bson.D{
			{{Key: "$addFields", Value: bson.D{{Key: "sortAuthor", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$authors", 0}}}, "",
			}}}}}}},
			{{Key: "$sort", Value: bson.D{{Key: "sortAuthor", Value: dir}, {Key: "_id", Value: 1}}}},
			{{Key: "$unset", Value: "sortAuthor"}},
		}
	case domain.SortByPublisher:
		return []bson.D{{{Key: "$sort", Value: bson.D{{Key: "publisher", Value: dir}, {Key: "_id", Value: 1}}}}}
	default:
		return []bson.D{{{Key: "$sort", Value: bson.D{{Key: "title", Value: dir}, {Key: "_id", Value: 1}}}}}
	}
}
