package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/bookcatalog/pkg/kafka"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/event"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
	"github.com/utafrali/bookcatalog/services/catalog/internal/ratelimit"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository/memory"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// --- Fake Kafka publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

// --- Clock ---

// stepClock advances one second on every read.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// --- Fixture over the in-memory repositories ---

type fixture struct {
	books   *memory.BookRepository
	reviews *memory.ReviewRepository
	users   *memory.UserRepository
	pub     *fakePublisher

	catalog *CatalogService
	review  *ReviewService
	user    *UserService
}

func newFixture(t *testing.T, limiter ratelimit.Limiter) *fixture {
	t.Helper()
	f := &fixture{
		books:   memory.NewBookRepository(),
		reviews: memory.NewReviewRepository(),
		users:   memory.NewUserRepository(),
		pub:     &fakePublisher{},
	}
	logger := newTestLogger()
	producer := event.NewProducer(f.pub, logger)

	f.catalog = NewCatalogService(f.books, logger)
	f.review = NewReviewService(f.reviews, f.books, f.users, limiter, producer, logger)
	f.review.now = newStepClock().Now
	f.user = NewUserService(f.users, f.books, logger)
	return f
}

func (f *fixture) addBooks(t *testing.T, books ...domain.Book) {
	t.Helper()
	for i := range books {
		require.NoError(t, f.books.Create(context.Background(), &books[i]))
	}
}

func (f *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &domain.User{ID: id, Name: id, Secret: "secret-" + id}))
}

func (f *fixture) histogram(t *testing.T, bookID string) domain.Histogram {
	t.Helper()
	b, err := f.books.GetByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.Ratings
}

// --- Mock Book Repository ---

type mockBookRepository struct {
	mock.Mock
}

var _ repository.BookRepository = (*mockBookRepository)(nil)

func (m *mockBookRepository) Create(ctx context.Context, book *domain.Book) error {
	return m.Called(ctx, book).Error(0)
}

func (m *mockBookRepository) GetByID(ctx context.Context, id string) (*domain.RatedBook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatedBook), args.Error(1)
}

func (m *mockBookRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.RatedBook, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.RatedBook), args.Error(1)
}

func (m *mockBookRepository) Query(ctx context.Context, p query.Pipeline) ([]domain.RatedBook, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatedBook), args.Error(1)
}

func (m *mockBookRepository) Sample(ctx context.Context) (*domain.RatedBook, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatedBook), args.Error(1)
}

func (m *mockBookRepository) DateSpan(ctx context.Context) (domain.DateSpan, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.DateSpan), args.Error(1)
}

func (m *mockBookRepository) PageSpan(ctx context.Context) (domain.PageSpan, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PageSpan), args.Error(1)
}

func (m *mockBookRepository) AdjustRatings(ctx context.Context, id string, deltas map[int]int64) (domain.Histogram, error) {
	args := m.Called(ctx, id, deltas)
	return args.Get(0).(domain.Histogram), args.Error(1)
}

// --- Limiter stubs ---

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (bool, error) {
	return false, context.DeadlineExceeded
}
