package domain

import "time"

// Review is one user's rating and text for one book. Nothing enforces a
// single review per (user, book) pair.
type Review struct {
	ID          string    `json:"id"`
	BookID      string    `json:"bookId"`
	UserID      string    `json:"userId"`
	Rating      float64   `json:"rating"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Star returns the rating as a histogram bucket.
func (r *Review) Star() int {
	return RoundRating(r.Rating)
}

// ReviewChange describes a stored review update. PriorRating is the rating
// before the update.
type ReviewChange struct {
	Review      *Review
	PriorRating float64
}

// RatingChanged reports whether the update moved the review to another
// histogram bucket.
func (c ReviewChange) RatingChanged() bool {
	return RoundRating(c.PriorRating) != c.Review.Star()
}

// ReviewMode selects which reviews of a book are listed.
type ReviewMode int

const (
	ReviewsAll ReviewMode = iota
	ReviewsAvoidUser
	ReviewsFocusUser
)

// ReviewQuery selects a page of a book's reviews. UserID is the avoided or
// focused user depending on Mode.
type ReviewQuery struct {
	BookID string
	Mode   ReviewMode
	UserID string
	Offset int
	Limit  int
}

// NewReviewQuery resolves the listing mode: an avoided user wins over a
// focused one, and neither means all reviews.
func NewReviewQuery(bookID string, avoidUserID, focusUserID *string) ReviewQuery {
	q := ReviewQuery{BookID: bookID}
	switch {
	case avoidUserID != nil && *avoidUserID != "":
		q.Mode, q.UserID = ReviewsAvoidUser, *avoidUserID
	case focusUserID != nil && *focusUserID != "":
		q.Mode, q.UserID = ReviewsFocusUser, *focusUserID
	}
	return q
}

// WithPage sets the page window.
func (q ReviewQuery) WithPage(offset, limit int) ReviewQuery {
	q.Offset, q.Limit = offset, limit
	return q
}

// Matches reports whether r belongs to the listing.
func (q ReviewQuery) Matches(r *Review) bool {
	if r.BookID != q.BookID {
		return false
	}
	switch q.Mode {
	case ReviewsAvoidUser:
		return r.UserID != q.UserID
	case ReviewsFocusUser:
		return r.UserID == q.UserID
	default:
		return true
	}
}
