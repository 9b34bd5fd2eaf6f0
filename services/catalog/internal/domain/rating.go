package domain

import "math"

// Star bounds for a single rating.
const (
	MinStar = 1
	MaxStar = 5
)

// ValidStar reports whether star is a whole value in [MinStar, MaxStar].
func ValidStar(star int) bool {
	return star >= MinStar && star <= MaxStar
}

// Histogram counts ratings per star value. Index 0 holds one-star ratings.
// It is the only persisted form of a book's rating; totals and averages
// are always derived from it.
type Histogram [MaxStar]int64

// Count returns the number of ratings at star, or 0 for an invalid star.
func (h Histogram) Count(star int) int64 {
	if !ValidStar(star) {
		return 0
	}
	return h[star-1]
}

// Add adjusts the bucket for star by delta. Buckets never drop below zero
// and invalid stars are ignored.
func (h *Histogram) Add(star int, delta int64) {
	if !ValidStar(star) {
		return
	}
	h[star-1] = max(h[star-1]+delta, 0)
}

// Buckets returns the counts keyed by star value.
func (h Histogram) Buckets() map[int]int64 {
	out := make(map[int]int64, MaxStar)
	for star := MinStar; star <= MaxStar; star++ {
		out[star] = h[star-1]
	}
	return out
}

// RatingSummary is the derived view of a histogram.
type RatingSummary struct {
	TotalRatings  int64   `json:"totalRatings"`
	AverageRating float64 `json:"averageRating"`
}

// Aggregate computes the total count and weighted mean of h. The weighted
// sum is accumulated as an integer and divided once, so the result is the
// correctly rounded quotient for any realistic count.
func Aggregate(h Histogram) RatingSummary {
	var total, weighted int64
	for i, count := range h {
		total += count
		weighted += int64(i+1) * count
	}
	if total == 0 {
		return RatingSummary{}
	}
	return RatingSummary{
		TotalRatings:  total,
		AverageRating: float64(weighted) / float64(total),
	}
}

// RoundRating rounds an average to the nearest star, halves away from zero
// (3.5 -> 4, 2.5 -> 3).
func RoundRating(avg float64) int {
	return int(math.Round(avg))
}
