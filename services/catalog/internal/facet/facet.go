// Package facet partitions a fetched catalog page by the two constraints
// that facet counts relax one at a time: genre and minimum rating.
package facet

import (
	"cmp"
	"slices"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// Constraints are the post-fetch filters. Empty Genres and nil MinRating
// mean unconstrained.
type Constraints struct {
	Genres    []string
	MinRating *int
}

// ConstraintsOf extracts the post-fetch part of a filter.
func ConstraintsOf(f domain.FilterInput) Constraints {
	return Constraints{Genres: f.Genres, MinRating: f.MinRating}
}

func (c Constraints) genreOK(b *domain.RatedBook) bool {
	return len(c.Genres) == 0 || b.HasGenre(c.Genres)
}

func (c Constraints) ratingOK(b *domain.RatedBook) bool {
	return c.MinRating == nil || b.RoundedAverageRating >= *c.MinRating
}

// ExclusionSets are three views of one base fetch. All applies every
// constraint; the other two each skip the named one.
type ExclusionSets struct {
	All               []domain.RatedBook
	GenresExcluded    []domain.RatedBook
	MinRatingExcluded []domain.RatedBook
}

// Partition computes all three sets from base, preserving its order.
func Partition(base []domain.RatedBook, c Constraints) ExclusionSets {
	return ExclusionSets{
		All:               MatchAll(base, c),
		GenresExcluded:    MatchIgnoringGenres(base, c),
		MinRatingExcluded: MatchIgnoringMinRating(base, c),
	}
}

// MatchAll keeps books satisfying both the genre and rating constraints.
func MatchAll(base []domain.RatedBook, c Constraints) []domain.RatedBook {
	return filter(base, func(b *domain.RatedBook) bool { return c.genreOK(b) && c.ratingOK(b) })
}

// MatchIgnoringGenres keeps books satisfying the rating constraint.
func MatchIgnoringGenres(base []domain.RatedBook, c Constraints) []domain.RatedBook {
	return filter(base, c.ratingOK)
}

// MatchIgnoringMinRating keeps books satisfying the genre constraint.
func MatchIgnoringMinRating(base []domain.RatedBook, c Constraints) []domain.RatedBook {
	return filter(base, c.genreOK)
}

func filter(base []domain.RatedBook, pred func(*domain.RatedBook) bool) []domain.RatedBook {
	out := make([]domain.RatedBook, 0, len(base))
	for i := range base {
		if pred(&base[i]) {
			out = append(out, base[i])
		}
	}
	return out
}

// ValueCount is the number of books carrying one facet value.
type ValueCount struct {
	Value string
	Count int
}

// CountGenres counts books per genre, most common first, then by name.
func CountGenres(books []domain.RatedBook) []ValueCount {
	counts := make(map[string]int)
	for _, b := range books {
		seen := make(map[string]struct{}, len(b.Genres))
		for _, g := range b.Genres {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			counts[g]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, ValueCount{Value: g, Count: n})
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// StarCount is the number of books rated at least Star.
type StarCount struct {
	Star  int
	Count int
}

// CountRatings returns, for each star 1..5, how many books have a rounded
// average of at least that star.
func CountRatings(books []domain.RatedBook) []StarCount {
	var atStar [domain.MaxStar + 1]int
	for _, b := range books {
		if r := b.RoundedAverageRating; r >= domain.MinStar && r <= domain.MaxStar {
			atStar[r]++
		}
	}

	out := make([]StarCount, domain.MaxStar)
	running := 0
	for star := domain.MaxStar; star >= domain.MinStar; star-- {
		running += atStar[star]
		out[star-1] = StarCount{Star: star, Count: running}
	}
	return out
}
