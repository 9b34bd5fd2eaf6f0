package mongo

import (
	"time"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

type ratingsDoc struct {
	One   int64 `bson:"1"`
	Two   int64 `bson:"2"`
	Three int64 `bson:"3"`
	Four  int64 `bson:"4"`
	Five  int64 `bson:"5"`
}

type seriesDoc struct {
	Name     string `bson:"name"`
	Position int    `bson:"position"`
}

// bookDoc is the stored book plus the fields added by the rating stages.
type bookDoc struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Authors     []string   `bson:"authors"`
	Genres      []string   `bson:"genres"`
	Publisher   string     `bson:"publisher"`
	PageCount   int        `bson:"pageCount"`
	PublishDate *time.Time `bson:"publishDate,omitempty"`
	ISBN        string     `bson:"isbn"`
	Language    string     `bson:"language"`
	Format      string     `bson:"format"`
	Series      *seriesDoc `bson:"series,omitempty"`
	Ratings     ratingsDoc `bson:"ratings"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`

	TotalRatings         int64   `bson:"totalRatings,omitempty"`
	AverageRating        float64 `bson:"averageRating,omitempty"`
	RoundedAverageRating float64 `bson:"roundedAverageRating,omitempty"`
}

func newBookDoc(b *domain.Book) bookDoc {
	doc := bookDoc{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Authors:     nonNil(b.Authors),
		Genres:      nonNil(b.Genres),
		Publisher:   b.Publisher,
		PageCount:   b.PageCount,
		PublishDate: b.PublishDate,
		ISBN:        b.ISBN,
		Language:    b.Language,
		Format:      b.Format,
		Ratings: ratingsDoc{
			One:   b.Ratings.Count(1),
			Two:   b.Ratings.Count(2),
			Three: b.Ratings.Count(3),
			Four:  b.Ratings.Count(4),
			Five:  b.Ratings.Count(5),
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Series != nil {
		doc.Series = &seriesDoc{Name: b.Series.Name, Position: b.Series.Position}
	}
	return doc
}

func (d ratingsDoc) histogram() domain.Histogram {
	var h domain.Histogram
	for i, v := range []int64{d.One, d.Two, d.Three, d.Four, d.Five} {
		h.Add(i+1, v)
	}
	return h
}

func (d *bookDoc) book() domain.Book {
	b := domain.Book{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Authors:     d.Authors,
		Genres:      d.Genres,
		Publisher:   d.Publisher,
		PageCount:   d.PageCount,
		PublishDate: d.PublishDate,
		ISBN:        d.ISBN,
		Language:    d.Language,
		Format:      d.Format,
		Ratings:     d.Ratings.histogram(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Series != nil {
		b.Series = &domain.Series{Name: d.Series.Name, Position: d.Series.Position}
	}
	return b
}

// rated uses the store-computed rating fields.
func (d *bookDoc) rated() domain.RatedBook {
	return domain.RatedBook{
		Book:                 d.book(),
		TotalRatings:         d.TotalRatings,
		AverageRating:        d.AverageRating,
		RoundedAverageRating: int(d.RoundedAverageRating),
	}
}

type reviewDoc struct {
	ID          string    `bson:"_id"`
	BookID      string    `bson:"bookId"`
	UserID      string    `bson:"userId"`
	Rating      float64   `bson:"rating"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func newReviewDoc(r *domain.Review) reviewDoc {
	return reviewDoc(*r)
}

func (d reviewDoc) review() domain.Review {
	return domain.Review(d)
}

type userDoc struct {
	ID         string   `bson:"_id"`
	Name       string   `bson:"name"`
	Secret     string   `bson:"secret"`
	WantToRead []string `bson:"wantToRead"`
	HaveRead   []string `bson:"haveRead"`
}

func newUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:         u.ID,
		Name:       u.Name,
		Secret:     u.Secret,
		WantToRead: nonNil(u.WantToRead),
		HaveRead:   nonNil(u.HaveRead),
	}
}

func (d userDoc) user() domain.User {
	return domain.User{
		ID:         d.ID,
		Name:       d.Name,
		Secret:     d.Secret,
		WantToRead: d.WantToRead,
		HaveRead:   d.HaveRead,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
