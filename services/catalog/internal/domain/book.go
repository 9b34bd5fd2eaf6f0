package domain

import (
	"strings"
	"time"
)

// Series places a book within a numbered series.
type Series struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Book is a catalog entry.
type Book struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Authors     []string   `json:"authors"`
	Genres      []string   `json:"genres"`
	Publisher   string     `json:"publisher"`
	PageCount   int        `json:"pageCount"`
	PublishDate *time.Time `json:"publishDate,omitempty"`
	ISBN        string     `json:"isbn"`
	Language    string     `json:"language"`
	Format      string     `json:"format"`
	Series      *Series    `json:"series,omitempty"`
	Ratings     Histogram  `json:"ratings"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FirstAuthor is the author sort key. Books without authors sort first.
func (b *Book) FirstAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// HasGenre reports whether the book carries any of genres.
func (b *Book) HasGenre(genres []string) bool {
	for _, want := range genres {
		for _, have := range b.Genres {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RatedBook is a book annotated with its derived rating fields.
type RatedBook struct {
	Book
	TotalRatings         int64   `json:"totalRatings"`
	AverageRating        float64 `json:"averageRating"`
	RoundedAverageRating int     `json:"roundedAverageRating"`
}

// Rate annotates b with the aggregate of its histogram.
func Rate(b Book) RatedBook {
	summary := Aggregate(b.Ratings)
	return RatedBook{
		Book:                 b,
		TotalRatings:         summary.TotalRatings,
		AverageRating:        summary.AverageRating,
		RoundedAverageRating: RoundRating(summary.AverageRating),
	}
}

// NewBook is the input for adding a book to the catalog.
type NewBook struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"notblank,max=500"`
	Description string     `json:"description" validate:"max=20000"`
	Authors     []string   `json:"authors" validate:"dive,notblank"`
	Genres      []string   `json:"genres" validate:"dive,notblank"`
	Publisher   string     `json:"publisher"`
	PageCount   int        `json:"pageCount" validate:"min=0"`
	PublishDate *time.Time `json:"publishDate"`
	ISBN        string     `json:"isbn"`
	Language    string     `json:"language"`
	Format      string     `json:"format"`
	Series      *Series    `json:"series"`
}

// Normalize trims free-text fields in place.
func (n *NewBook) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	n.Publisher = strings.TrimSpace(n.Publisher)
	for i := range n.Authors {
		n.Authors[i] = strings.TrimSpace(n.Authors[i])
	}
	for i := range n.Genres {
		n.Genres[i] = strings.TrimSpace(n.Genres[i])
	}
}

// DateSpan is the publish date range of the whole collection. Both ends
// are nil when no book has a publish date.
type DateSpan struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// PageSpan is the page count range of the whole collection.
type PageSpan struct {
	Least int `json:"least"`
	Most  int `json:"most"`
}
