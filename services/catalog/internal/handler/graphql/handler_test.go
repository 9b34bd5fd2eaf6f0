package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookcatalog/pkg/middleware"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/event"
	"github.com/utafrali/bookcatalog/services/catalog/internal/query"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository/memory"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

type gqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path"`
	Extensions map[string]any `json:"extensions"`
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

type testEnv struct {
	books   *memory.BookRepository
	users   *memory.UserRepository
	handler http.Handler
}

func newTestEnv(t *testing.T, books repository.BookRepository) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mem := memory.NewBookRepository()
	if books == nil {
		books = mem
	}
	users := memory.NewUserRepository()
	reviews := memory.NewReviewRepository()

	catalog := service.NewCatalogService(books, logger)
	reviewSvc := service.NewReviewService(reviews, books, users, nil, event.NewProducer(nil, logger), logger)
	userSvc := service.NewUserService(users, books, logger)

	schema, err := NewSchema(NewResolver(catalog, reviewSvc, userSvc), 0, logger)
	require.NoError(t, err)

	return &testEnv{books: mem, users: users, handler: NewHandler(schema, logger)}
}

func (e *testEnv) addBook(t *testing.T, b domain.Book) {
	t.Helper()
	require.NoError(t, e.books.Create(context.Background(), &b))
}

func (e *testEnv) addUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.users.Create(context.Background(), &domain.User{ID: id, Name: "Reader " + id, Secret: "s-" + id}))
}

func (e *testEnv) do(t *testing.T, ctx context.Context, q string, vars map[string]any) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": q, "variables": vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) exec(t *testing.T, q string, vars map[string]any) gqlResponse {
	t.Helper()
	return e.do(t, context.Background(), q, vars)
}

func field(t *testing.T, resp gqlResponse, name string, dst any) {
	t.Helper()
	require.Empty(t, resp.Errors)
	require.NoError(t, json.Unmarshal(resp.Data[name], dst))
}

func day(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func seedCatalog(t *testing.T, e *testEnv) {
	t.Helper()
	e.addBook(t, domain.Book{ID: "b-1", Title: "The Hunger Games", Genres: []string{"Dystopia"}, PageCount: 374,
		PublishDate: day(2008, 9, 14), Ratings: domain.Histogram{0, 0, 0, 0, 2}})
	e.addBook(t, domain.Book{ID: "b-2", Title: "Dune", Genres: []string{"SciFi"}, PageCount: 412,
		PublishDate: day(1965, 8, 1), Ratings: domain.Histogram{0, 0, 1, 0, 0}})
	e.addBook(t, domain.Book{ID: "b-3", Title: "Kindred", Genres: []string{"SciFi", "Historical"}, PageCount: 264,
		PublishDate: day(1979, 6, 1)})
}

func TestBooksQuery(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)

	resp := e.exec(t, `query($input: FilterInput) {
		books(input: $input, offset: 0, limit: 1) {
			books { id title averageRating roundedAverageRating totalRatings ratings { star count } publishDate }
			summary { totalBooks }
		}
	}`, map[string]any{"input": map[string]any{
		"genres": []string{"SciFi"},
		"sort":   map[string]any{"field": "TITLE", "direction": "DESC"},
	}})

	var list struct {
		Books []struct {
			ID                   string
			Title                string
			AverageRating        float64
			RoundedAverageRating int
			TotalRatings         int
			Ratings              []struct{ Star, Count int }
			PublishDate          *string
		}
		Summary struct{ TotalBooks int }
	}
	field(t, resp, "books", &list)

	assert.Equal(t, 2, list.Summary.TotalBooks)
	require.Len(t, list.Books, 1)
	assert.Equal(t, "Kindred", list.Books[0].Title)
	assert.Equal(t, 0, list.Books[0].TotalRatings)
	assert.Len(t, list.Books[0].Ratings, 5)
	require.NotNil(t, list.Books[0].PublishDate)
	assert.Equal(t, "1979-06-01T00:00:00.000Z", *list.Books[0].PublishDate)
}

func TestBooksQuery_DateBoundsAcceptStringsAndMillis(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)

	resp := e.exec(t, `query($input: FilterInput) { books(input: $input) { books { id } } }`,
		map[string]any{"input": map[string]any{
			"afterDate":  "1970-01-01",
			"beforeDate": 1262304000000,
		}})

	var list struct{ Books []struct{ ID string } }
	field(t, resp, "books", &list)
	require.Len(t, list.Books, 2)
	assert.ElementsMatch(t, []string{"b-1", "b-3"}, []string{list.Books[0].ID, list.Books[1].ID})
}

func TestBooksQuery_InvalidDateIsRejected(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)

	tests := []struct {
		name  string
		query string
		vars  map[string]any
	}{
		{
			name:  "variable",
			query: `query($input: FilterInput) { books(input: $input) { books { id } } }`,
			vars:  map[string]any{"input": map[string]any{"afterDate": "not a date"}},
		},
		{
			name:  "literal",
			query: `{ books(input: {afterDate: "not a date"}) { books { id } } }`,
		},
		{
			name:  "mutation input",
			query: `mutation { createBook(input: {title: "T", publishDate: "31/12/2001"}) { id } }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.exec(t, tt.query, tt.vars)

			require.NotEmpty(t, resp.Errors)
			assert.Contains(t, resp.Errors[0].Message, "invalid Date")
			assert.Equal(t, "INVALID_DATE", resp.Errors[0].Extensions["code"])
		})
	}
}

func TestBooksQuery_InvalidPaging(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.exec(t, `{ books(limit: 0) { summary { totalBooks } } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "INVALID_INPUT", resp.Errors[0].Extensions["code"])
}

func TestFilterCountQuery(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)

	resp := e.exec(t, `{
		filterCount(input: {genres: ["SciFi"], minRating: 4}) {
			books { id }
			minRatingBooks { id }
			genresBooks { id }
			genreCounts { genre count }
			ratingCounts { stars count }
		}
	}`, nil)

	type ids []struct{ ID string }
	var counts struct {
		Books          ids
		MinRatingBooks ids
		GenresBooks    ids
		GenreCounts    []struct {
			Genre string
			Count int
		}
		RatingCounts []struct{ Stars, Count int }
	}
	field(t, resp, "filterCount", &counts)

	assert.Empty(t, counts.Books)
	assert.Len(t, counts.MinRatingBooks, 2, "genre constraint only")
	require.Len(t, counts.GenresBooks, 1, "rating constraint only")
	assert.Equal(t, "b-1", counts.GenresBooks[0].ID)
	require.Len(t, counts.GenreCounts, 1)
	assert.Equal(t, "Dystopia", counts.GenreCounts[0].Genre)
	assert.Len(t, counts.RatingCounts, 5)
}

func TestSpansAndRandomBook(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.exec(t, `{ randomBook { id } dateSpan { earliest latest } pageSpan { least most } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `null`, string(resp.Data["randomBook"]))
	assert.JSONEq(t, `{"earliest":null,"latest":null}`, string(resp.Data["dateSpan"]))

	seedCatalog(t, e)
	resp = e.exec(t, `{ randomBook { id } dateSpan { earliest latest } pageSpan { least most } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"earliest":"1965-08-01T00:00:00.000Z","latest":"2008-09-14T00:00:00.000Z"}`, string(resp.Data["dateSpan"]))
	assert.JSONEq(t, `{"least":264,"most":412}`, string(resp.Data["pageSpan"]))
	assert.NotEqual(t, "null", string(resp.Data["randomBook"]))
}

const createReview = `mutation($input: CreateReviewInput!) { createReview(input: $input) { rating } }`

func TestCreateReviewMutation(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)
	e.addUser(t, "u-1")

	resp := e.exec(t, createReview, map[string]any{"input": map[string]any{
		"userUUID": "u-1", "bookID": "b-1", "description": "bleak", "rating": 1,
	}})
	var result struct{ Rating float64 }
	field(t, resp, "createReview", &result)
	assert.InDelta(t, 11.0/3.0, result.Rating, 1e-9)

	resp = e.exec(t, `{ bookReviews(bookID: "b-1") {
		reviews { rating description user { id name } book { id totalRatings } }
		pagination { totalPages currentPage isLastPage }
		summary { total }
	} }`, nil)
	var list struct {
		Reviews []struct {
			Rating      float64
			Description string
			User        struct{ ID, Name string }
			Book        struct {
				ID           string
				TotalRatings int
			}
		}
		Pagination struct {
			TotalPages  int
			CurrentPage int
			IsLastPage  bool
		}
		Summary struct{ Total int }
	}
	field(t, resp, "bookReviews", &list)
	require.Len(t, list.Reviews, 1)
	assert.Equal(t, "Reader u-1", list.Reviews[0].User.Name)
	assert.Equal(t, 3, list.Reviews[0].Book.TotalRatings)
	assert.Equal(t, 1, list.Summary.Total)
	assert.True(t, list.Pagination.IsLastPage)
	assert.Equal(t, 1, list.Pagination.CurrentPage)
}

func TestCreateReviewMutation_ForbiddenForOtherCaller(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)
	e.addUser(t, "u-1")

	ctx := middleware.WithUserID(context.Background(), "u-2")
	resp := e.do(t, ctx, createReview, map[string]any{"input": map[string]any{
		"userUUID": "u-1", "bookID": "b-1", "rating": 4,
	}})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "FORBIDDEN", resp.Errors[0].Extensions["code"])
}

func TestUpdateReviewMutation(t *testing.T) {
	e := newTestEnv(t, nil)
	e.addBook(t, domain.Book{ID: "b-9"})
	e.addUser(t, "u-1")

	resp := e.exec(t, createReview, map[string]any{"input": map[string]any{
		"userUUID": "u-1", "bookID": "b-9", "rating": 3,
	}})
	require.Empty(t, resp.Errors)

	resp = e.exec(t, `{ userReview(bookID: "b-9", userUUID: "u-1") { id rating user { id } book { id } } }`, nil)
	var review struct {
		ID     string
		Rating float64
		User   struct{ ID string }
		Book   struct{ ID string }
	}
	field(t, resp, "userReview", &review)
	assert.Equal(t, 3.0, review.Rating)
	assert.Equal(t, "u-1", review.User.ID)
	assert.Equal(t, "b-9", review.Book.ID)

	const update = `mutation($input: UpdateReviewInput!) { updateReview(input: $input) { rating } }`

	resp = e.exec(t, update, map[string]any{"input": map[string]any{
		"reviewUUID": review.ID, "description": "same score", "rating": 3,
	}})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `null`, string(resp.Data["updateReview"]))

	resp = e.exec(t, update, map[string]any{"input": map[string]any{
		"reviewUUID": review.ID, "rating": 5,
	}})
	var result struct{ Rating float64 }
	field(t, resp, "updateReview", &result)
	assert.Equal(t, 5.0, result.Rating)
}

func TestUserReviewQuery_NotFound(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.exec(t, `{ userReview(bookID: "b-1", userUUID: "u-1") { id } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
	assert.Equal(t, []any{"userReview"}, resp.Errors[0].Path)
	assert.JSONEq(t, `null`, string(resp.Data["userReview"]))
}

func TestUserMutations(t *testing.T) {
	e := newTestEnv(t, nil)
	seedCatalog(t, e)

	resp := e.exec(t, `mutation { createUser(name: "Octavia") { id name secret } }`, nil)
	var created struct{ ID, Name, Secret string }
	field(t, resp, "createUser", &created)
	assert.Equal(t, "Octavia", created.Name)
	assert.Len(t, created.Secret, 64)

	ctx := middleware.WithUserID(context.Background(), created.ID)
	resp = e.do(t, ctx, `mutation($input: ShelfInput!) { addToShelf(input: $input) { id wantToRead { id } haveRead { id } } }`,
		map[string]any{"input": map[string]any{"userUUID": created.ID, "bookID": "b-3", "shelf": "WANT_TO_READ"}})
	var user struct {
		ID         string
		WantToRead []struct{ ID string }
		HaveRead   []struct{ ID string }
	}
	field(t, resp, "addToShelf", &user)
	require.Len(t, user.WantToRead, 1)
	assert.Equal(t, "b-3", user.WantToRead[0].ID)
	assert.Empty(t, user.HaveRead)

	resp = e.exec(t, `query($id: ID!) { user(id: $id) { name wantToRead { title } } }`, map[string]any{"id": created.ID})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"name":"Octavia","wantToRead":[{"title":"Kindred"}]}`, string(resp.Data["user"]))
}

func TestCreateBookMutation(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.exec(t, `mutation {
		createBook(input: {title: " Parable of the Sower ", authors: ["Octavia E. Butler"], pageCount: 345,
			publishDate: "1993-10-01", series: {name: "Earthseed", position: 1}}) {
			id title publishDate averageRating series { name position }
		}
	}`, nil)
	var book struct {
		ID          string
		Title       string
		PublishDate string
		Series      struct {
			Name     string
			Position int
		}
	}
	field(t, resp, "createBook", &book)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Parable of the Sower", book.Title)
	assert.Equal(t, "1993-10-01T00:00:00.000Z", book.PublishDate)
	assert.Equal(t, "Earthseed", book.Series.Name)

	resp = e.exec(t, `mutation { createBook(input: {title: "  "}) { id } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "INVALID_INPUT", resp.Errors[0].Extensions["code"])
}

// failingBooks makes every catalog query fail as an unreachable store would.
type failingBooks struct {
	*memory.BookRepository
}

func (failingBooks) Query(context.Context, query.Pipeline) ([]domain.RatedBook, error) {
	return nil, errors.New("mongo: server selection timeout")
}

func TestStoreFailureIsMasked(t *testing.T) {
	e := newTestEnv(t, failingBooks{memory.NewBookRepository()})

	resp := e.exec(t, `{ books { summary { totalBooks } } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "INTERNAL_ERROR", resp.Errors[0].Extensions["code"])
	assert.NotContains(t, resp.Errors[0].Message, "mongo")
}

func TestQueryDepthLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	books := memory.NewBookRepository()
	users := memory.NewUserRepository()
	root := NewResolver(
		service.NewCatalogService(books, logger),
		service.NewReviewService(memory.NewReviewRepository(), books, users, nil, event.NewProducer(nil, logger), logger),
		service.NewUserService(users, books, logger),
	)
	schema, err := NewSchema(root, 2, logger)
	require.NoError(t, err)

	resp := schema.Exec(context.Background(), `{ pageSpan { least } }`, "", nil)
	assert.Empty(t, resp.Errors)

	resp = schema.Exec(context.Background(), `{ user(id: "u") { wantToRead { series { name } } } }`, "", nil)
	assert.NotEmpty(t, resp.Errors)
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"query":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
