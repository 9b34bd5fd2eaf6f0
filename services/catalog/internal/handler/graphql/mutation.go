package graphql

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/utafrali/bookcatalog/pkg/middleware"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

type createReviewArgs struct {
	UserUUID    graphql.ID
	BookID      graphql.ID
	Description *string
	Rating      int32
}

type updateReviewArgs struct {
	ReviewUUID  graphql.ID
	Description *string
	Rating      int32
}

type seriesArgs struct {
	Name     string
	Position int32
}

type createBookArgs struct {
	Title       string
	Description *string
	Authors     *[]string
	Genres      *[]string
	Publisher   *string
	PageCount   *int32
	PublishDate *Date
	ISBN        *string
	Language    *string
	Format      *string
	Series      *seriesArgs
}

type shelfArgs struct {
	UserUUID graphql.ID
	BookID   graphql.ID
	Shelf    string
}

func (a shelfArgs) input(ctx context.Context) service.ShelfInput {
	return service.ShelfInput{
		CallerID: middleware.UserIDFromContext(ctx),
		UserID:   string(a.UserUUID),
		BookID:   string(a.BookID),
		Shelf:    a.Shelf,
	}
}

func (r *Resolver) CreateReview(ctx context.Context, args struct{ Input createReviewArgs }) (*ratingResult, error) {
	avg, err := r.reviews.CreateReview(ctx, service.CreateReviewInput{
		CallerID:    middleware.UserIDFromContext(ctx),
		UserID:      string(args.Input.UserUUID),
		BookID:      string(args.Input.BookID),
		Description: str(args.Input.Description),
		Rating:      int(args.Input.Rating),
	})
	if err != nil {
		return nil, fail(err)
	}
	return &ratingResult{Rating: avg}, nil
}

func (r *Resolver) UpdateReview(ctx context.Context, args struct{ Input updateReviewArgs }) (*ratingResult, error) {
	avg, err := r.reviews.UpdateReview(ctx, service.UpdateReviewInput{
		CallerID:    middleware.UserIDFromContext(ctx),
		ReviewID:    string(args.Input.ReviewUUID),
		Description: str(args.Input.Description),
		Rating:      int(args.Input.Rating),
	})
	if err != nil {
		return nil, fail(err)
	}
	if avg == nil {
		return nil, nil
	}
	return &ratingResult{Rating: *avg}, nil
}

func (r *Resolver) CreateBook(ctx context.Context, args struct{ Input createBookArgs }) (*bookResolver, error) {
	in := args.Input
	nb := domain.NewBook{
		Title:       in.Title,
		Description: str(in.Description),
		Authors:     deref(in.Authors),
		Genres:      deref(in.Genres),
		Publisher:   str(in.Publisher),
		PublishDate: in.PublishDate.Ptr(),
		ISBN:        str(in.ISBN),
		Language:    str(in.Language),
		Format:      str(in.Format),
	}
	if in.PageCount != nil {
		nb.PageCount = int(*in.PageCount)
	}
	if in.Series != nil {
		nb.Series = &domain.Series{Name: in.Series.Name, Position: int(in.Series.Position)}
	}

	book, err := r.catalog.CreateBook(ctx, nb)
	if err != nil {
		return nil, fail(err)
	}
	return &bookResolver{b: *book}, nil
}

// CreateUser returns the new user's secret. This is the only response
// that ever carries it.
func (r *Resolver) CreateUser(ctx context.Context, args struct{ Name string }) (*userWithSecret, error) {
	user, err := r.users.CreateUser(ctx, service.CreateUserInput{Name: args.Name})
	if err != nil {
		return nil, fail(err)
	}
	return &userWithSecret{ID: graphql.ID(user.ID), Name: user.Name, Secret: user.Secret}, nil
}

func (r *Resolver) AddToShelf(ctx context.Context, args struct{ Input shelfArgs }) (*userResolver, error) {
	user, err := r.users.AddToShelf(ctx, args.Input.input(ctx))
	if err != nil {
		return nil, fail(err)
	}
	return &userResolver{u: user, catalog: r.catalog}, nil
}

func (r *Resolver) RemoveFromShelf(ctx context.Context, args struct{ Input shelfArgs }) (*userResolver, error) {
	user, err := r.users.RemoveFromShelf(ctx, args.Input.input(ctx))
	if err != nil {
		return nil, fail(err)
	}
	return &userResolver{u: user, catalog: r.catalog}, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
