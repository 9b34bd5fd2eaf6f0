package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
)

const secretBytes = 32

// CreateUserInput holds the parameters for creating a user.
type CreateUserInput struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// ShelfInput names a book to put on or take off one of a user's shelves.
type ShelfInput struct {
	CallerID string `json:"-"`
	UserID   string `json:"userUUID" validate:"required"`
	BookID   string `json:"bookID" validate:"required"`
	Shelf    string `json:"shelf" validate:"required"`
}

// UserService manages readers and their shelves.
type UserService struct {
	users  repository.UserRepository
	books  repository.BookRepository
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, books repository.BookRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, books: books, logger: logger}
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateUser registers a reader. The returned user carries the secret;
// it is never readable again afterwards.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Secret:     secret,
		WantToRead: []string{},
		HaveRead:   []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created", slog.String("user_id", user.ID))
	return user, nil
}

// GetUser retrieves a user by its ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// Authenticate resolves a secret to its user.
func (s *UserService) Authenticate(ctx context.Context, secret string) (*domain.User, error) {
	if secret == "" {
		return nil, apperrors.Unauthorized("secret is required")
	}
	user, err := s.users.GetBySecret(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

// ResolveSecret adapts Authenticate to the HTTP auth middleware.
func (s *UserService) ResolveSecret(ctx context.Context, secret string) (string, error) {
	user, err := s.Authenticate(ctx, secret)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *UserService) shelfArgs(ctx context.Context, in ShelfInput) (domain.Shelf, error) {
	if err := validateInput(in); err != nil {
		return "", err
	}
	shelf, err := domain.ParseShelf(in.Shelf)
	if err != nil {
		return "", apperrors.InvalidInput(err.Error())
	}
	if in.CallerID != "" && in.CallerID != in.UserID {
		return "", apperrors.Forbidden("cannot change another user's shelves")
	}
	if _, err := s.books.GetByID(ctx, in.BookID); err != nil {
		return "", fmt.Errorf("get book: %w", err)
	}
	return shelf, nil
}

// AddToShelf puts a book on a shelf, taking it off the other one.
func (s *UserService) AddToShelf(ctx context.Context, in ShelfInput) (*domain.User, error) {
	shelf, err := s.shelfArgs(ctx, in)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Shelve(ctx, in.UserID, in.BookID, shelf)
	if err != nil {
		return nil, fmt.Errorf("shelve book: %w", err)
	}
	s.logger.InfoContext(ctx, "book shelved",
		slog.String("user_id", in.UserID),
		slog.String("book_id", in.BookID),
		slog.String("shelf", string(shelf)),
	)
	return user, nil
}

// RemoveFromShelf takes a book off a shelf. Removing a book that is not
// there is a no-op.
func (s *UserService) RemoveFromShelf(ctx context.Context, in ShelfInput) (*domain.User, error) {
	shelf, err := s.shelfArgs(ctx, in)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Unshelve(ctx, in.UserID, in.BookID, shelf)
	if err != nil {
		return nil, fmt.Errorf("unshelve book: %w", err)
	}
	return user, nil
}
