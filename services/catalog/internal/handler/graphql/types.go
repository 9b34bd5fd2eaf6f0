package graphql

import (
	"context"
	"errors"

	"github.com/graph-gophers/graphql-go"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

// --- Book ---

type bookResolver struct {
	b domain.RatedBook
}

func newBooks(books []domain.RatedBook) []*bookResolver {
	out := make([]*bookResolver, len(books))
	for i := range books {
		out[i] = &bookResolver{b: books[i]}
	}
	return out
}

func (r *bookResolver) ID() graphql.ID         { return graphql.ID(r.b.ID) }
func (r *bookResolver) Title() string          { return r.b.Title }
func (r *bookResolver) Description() string    { return r.b.Description }
func (r *bookResolver) Authors() []string      { return nonNil(r.b.Authors) }
func (r *bookResolver) Genres() []string       { return nonNil(r.b.Genres) }
func (r *bookResolver) Publisher() string      { return r.b.Publisher }
func (r *bookResolver) PageCount() int32       { return int32(r.b.PageCount) }
func (r *bookResolver) PublishDate() *Date     { return NewDate(r.b.PublishDate) }
func (r *bookResolver) ISBN() string           { return r.b.ISBN }
func (r *bookResolver) Language() string       { return r.b.Language }
func (r *bookResolver) Format() string         { return r.b.Format }
func (r *bookResolver) TotalRatings() int32    { return int32(r.b.TotalRatings) }
func (r *bookResolver) AverageRating() float64 { return r.b.AverageRating }
func (r *bookResolver) CreatedAt() Date        { return Date{Time: r.b.CreatedAt} }

func (r *bookResolver) RoundedAverageRating() int32 {
	return int32(r.b.RoundedAverageRating)
}

func (r *bookResolver) Series() *seriesValue {
	if r.b.Series == nil {
		return nil
	}
	return &seriesValue{Name: r.b.Series.Name, Position: int32(r.b.Series.Position)}
}

func (r *bookResolver) Ratings() []*ratingBucket {
	out := make([]*ratingBucket, 0, domain.MaxStar)
	for star := domain.MinStar; star <= domain.MaxStar; star++ {
		out = append(out, &ratingBucket{Star: int32(star), Count: int32(r.b.Ratings.Count(star))})
	}
	return out
}

type seriesValue struct {
	Name     string
	Position int32
}

type ratingBucket struct {
	Star  int32
	Count int32
}

// --- Book listings ---

type bookListResolver struct {
	page *service.BookPage
}

func (r *bookListResolver) Books() []*bookResolver { return newBooks(r.page.Books) }

func (r *bookListResolver) Summary() *bookListSummary {
	return &bookListSummary{TotalBooks: int32(r.page.TotalBooks)}
}

type bookListSummary struct {
	TotalBooks int32
}

type filterCountResolver struct {
	counts *service.FilterCounts
}

func (r *filterCountResolver) Books() []*bookResolver { return newBooks(r.counts.All) }

func (r *filterCountResolver) MinRatingBooks() []*bookResolver {
	return newBooks(r.counts.MinRatingExcluded)
}

func (r *filterCountResolver) GenresBooks() []*bookResolver {
	return newBooks(r.counts.GenresExcluded)
}

func (r *filterCountResolver) GenreCounts() []*genreCount {
	out := make([]*genreCount, len(r.counts.GenreCounts))
	for i, c := range r.counts.GenreCounts {
		out[i] = &genreCount{Genre: c.Value, Count: int32(c.Count)}
	}
	return out
}

func (r *filterCountResolver) RatingCounts() []*ratingCount {
	out := make([]*ratingCount, len(r.counts.RatingCounts))
	for i, c := range r.counts.RatingCounts {
		out[i] = &ratingCount{Stars: int32(c.Star), Count: int32(c.Count)}
	}
	return out
}

type genreCount struct {
	Genre string
	Count int32
}

type ratingCount struct {
	Stars int32
	Count int32
}

type dateSpan struct {
	Earliest *Date
	Latest   *Date
}

type pageSpan struct {
	Least int32
	Most  int32
}

// --- User ---

type userResolver struct {
	u       *domain.User
	catalog *service.CatalogService
}

func (r *userResolver) ID() graphql.ID { return graphql.ID(r.u.ID) }
func (r *userResolver) Name() string   { return r.u.Name }

func (r *userResolver) WantToRead(ctx context.Context) ([]*bookResolver, error) {
	return r.shelf(ctx, r.u.WantToRead)
}

func (r *userResolver) HaveRead(ctx context.Context) ([]*bookResolver, error) {
	return r.shelf(ctx, r.u.HaveRead)
}

func (r *userResolver) shelf(ctx context.Context, ids []string) ([]*bookResolver, error) {
	books, err := r.catalog.GetBooks(ctx, ids)
	if err != nil {
		return nil, fail(err)
	}
	return newBooks(books), nil
}

type userWithSecret struct {
	ID     graphql.ID
	Name   string
	Secret string
}

// --- Review ---

// reviewResolver serves a review whose author and book were either
// batch-loaded by the listing (loaded) or are fetched on demand.
type reviewResolver struct {
	d      service.ReviewDetail
	loaded bool
	root   *Resolver
}

func (r *reviewResolver) ID() graphql.ID      { return graphql.ID(r.d.ID) }
func (r *reviewResolver) Rating() float64     { return r.d.Rating }
func (r *reviewResolver) Description() string { return r.d.Description }
func (r *reviewResolver) CreatedAt() Date     { return Date{Time: r.d.CreatedAt} }
func (r *reviewResolver) UpdatedAt() Date     { return Date{Time: r.d.UpdatedAt} }

func (r *reviewResolver) User(ctx context.Context) (*userResolver, error) {
	user := r.d.User
	if !r.loaded {
		u, err := r.root.users.GetUser(ctx, r.d.UserID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fail(err)
		}
		user = u
	}
	if user == nil {
		return nil, nil
	}
	return &userResolver{u: user, catalog: r.root.catalog}, nil
}

func (r *reviewResolver) Book(ctx context.Context) (*bookResolver, error) {
	book := r.d.Book
	if !r.loaded {
		b, err := r.root.catalog.GetBook(ctx, r.d.BookID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fail(err)
		}
		book = b
	}
	if book == nil {
		return nil, nil
	}
	return &bookResolver{b: *book}, nil
}

type reviewListResolver struct {
	page *service.ReviewPage
	root *Resolver
}

func (r *reviewListResolver) Reviews() []*reviewResolver {
	out := make([]*reviewResolver, len(r.page.Reviews))
	for i := range r.page.Reviews {
		out[i] = &reviewResolver{d: r.page.Reviews[i], loaded: true, root: r.root}
	}
	return out
}

func (r *reviewListResolver) Pagination() *paginationInfo {
	return &paginationInfo{
		TotalPages:  int32(r.page.Pagination.TotalPages),
		CurrentPage: int32(r.page.Pagination.CurrentPage),
		IsLastPage:  r.page.Pagination.IsLastPage,
	}
}

func (r *reviewListResolver) Summary() *reviewSummary {
	return &reviewSummary{Total: int32(r.page.Total)}
}

type paginationInfo struct {
	TotalPages  int32
	CurrentPage int32
	IsLastPage  bool
}

type reviewSummary struct {
	Total int32
}

type ratingResult struct {
	Rating float64
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
