package graphql

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/pagination"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

// Resolver is the root resolver for both queries and mutations.
type Resolver struct {
	catalog *service.CatalogService
	reviews *service.ReviewService
	users   *service.UserService
}

// NewResolver creates the root resolver over the given services.
func NewResolver(catalog *service.CatalogService, reviews *service.ReviewService, users *service.UserService) *Resolver {
	return &Resolver{catalog: catalog, reviews: reviews, users: users}
}

type sortArgs struct {
	Field     string
	Direction string
}

type filterArgs struct {
	SearchText *string
	Sort       *sortArgs
	BeforeDate *Date
	AfterDate  *Date
	Authors    *[]string
	Genres     *[]string
	Publishers *[]string
	MinPages   *int32
	MaxPages   *int32
	MinRating  *int32
}

func (a *filterArgs) filter() (domain.FilterInput, error) {
	if a == nil {
		return domain.FilterInput{}, nil
	}
	f := domain.FilterInput{
		SearchText: a.SearchText,
		BeforeDate: a.BeforeDate.Ptr(),
		AfterDate:  a.AfterDate.Ptr(),
		Authors:    deref(a.Authors),
		Genres:     deref(a.Genres),
		Publishers: deref(a.Publishers),
		MinPages:   toInt(a.MinPages),
		MaxPages:   toInt(a.MaxPages),
		MinRating:  toInt(a.MinRating),
	}
	if a.Sort != nil {
		spec, err := domain.ParseSortSpec(a.Sort.Field, a.Sort.Direction)
		if err != nil {
			return domain.FilterInput{}, apperrors.InvalidInput(err.Error())
		}
		f.Sort = &spec
	}
	return f, nil
}

func pageParams(offset, limit *int32) (pagination.Params, error) {
	p, err := pagination.New(toInt(offset), toInt(limit))
	if err != nil {
		return pagination.Params{}, apperrors.InvalidInput(err.Error())
	}
	return p, nil
}

// --- Queries ---

func (r *Resolver) Books(ctx context.Context, args struct {
	Input  *filterArgs
	Offset *int32
	Limit  *int32
}) (*bookListResolver, error) {
	f, err := args.Input.filter()
	if err != nil {
		return nil, fail(err)
	}
	page, err := pageParams(args.Offset, args.Limit)
	if err != nil {
		return nil, fail(err)
	}
	result, err := r.catalog.ListBooks(ctx, f, page)
	if err != nil {
		return nil, fail(err)
	}
	return &bookListResolver{page: result}, nil
}

func (r *Resolver) FilterCount(ctx context.Context, args struct{ Input *filterArgs }) (*filterCountResolver, error) {
	f, err := args.Input.filter()
	if err != nil {
		return nil, fail(err)
	}
	counts, err := r.catalog.FilterCounts(ctx, f)
	if err != nil {
		return nil, fail(err)
	}
	return &filterCountResolver{counts: counts}, nil
}

func (r *Resolver) RandomBook(ctx context.Context) (*bookResolver, error) {
	book, err := r.catalog.RandomBook(ctx)
	if err != nil {
		return nil, fail(err)
	}
	if book == nil {
		return nil, nil
	}
	return &bookResolver{b: *book}, nil
}

func (r *Resolver) DateSpan(ctx context.Context) (*dateSpan, error) {
	span, err := r.catalog.DateSpan(ctx)
	if err != nil {
		return nil, fail(err)
	}
	return &dateSpan{Earliest: NewDate(span.Earliest), Latest: NewDate(span.Latest)}, nil
}

func (r *Resolver) PageSpan(ctx context.Context) (*pageSpan, error) {
	span, err := r.catalog.PageSpan(ctx)
	if err != nil {
		return nil, fail(err)
	}
	return &pageSpan{Least: int32(span.Least), Most: int32(span.Most)}, nil
}

// BookReviews selects one of three modes: avoidUserUUID hides that
// user's reviews, focusUserUUID shows only theirs, neither shows all.
// avoidUserUUID wins when both are given.
func (r *Resolver) BookReviews(ctx context.Context, args struct {
	BookID        graphql.ID
	Limit         *int32
	Offset        *int32
	AvoidUserUUID *graphql.ID
	FocusUserUUID *graphql.ID
}) (*reviewListResolver, error) {
	page, err := pageParams(args.Offset, args.Limit)
	if err != nil {
		return nil, fail(err)
	}
	q := domain.NewReviewQuery(string(args.BookID), idPtr(args.AvoidUserUUID), idPtr(args.FocusUserUUID)).
		WithPage(page.Offset, page.Limit)

	result, err := r.reviews.ListReviews(ctx, q)
	if err != nil {
		return nil, fail(err)
	}
	return &reviewListResolver{page: result, root: r}, nil
}

func (r *Resolver) Book(ctx context.Context, args struct{ ID graphql.ID }) (*bookResolver, error) {
	book, err := r.catalog.GetBook(ctx, string(args.ID))
	if err != nil {
		return nil, fail(err)
	}
	return &bookResolver{b: *book}, nil
}

func (r *Resolver) UserReview(ctx context.Context, args struct {
	BookID   graphql.ID
	UserUUID graphql.ID
}) (*reviewResolver, error) {
	review, err := r.reviews.GetUserReview(ctx, string(args.BookID), string(args.UserUUID))
	if err != nil {
		return nil, fail(err)
	}
	return &reviewResolver{d: service.ReviewDetail{Review: *review}, root: r}, nil
}

func (r *Resolver) User(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	user, err := r.users.GetUser(ctx, string(args.ID))
	if err != nil {
		return nil, fail(err)
	}
	return &userResolver{u: user, catalog: r.catalog}, nil
}

func deref(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

func toInt(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func idPtr(id *graphql.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
