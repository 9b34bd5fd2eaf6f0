// Package main populates the catalog with a deterministic set of books,
// readers and reviews. It talks to MongoDB through the same services the
// server uses, so rating histograms are built by real review writes.
//
// Run: go run ./services/catalog/cmd/seed
package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/utafrali/bookcatalog/pkg/database"
	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/logger"
	"github.com/utafrali/bookcatalog/services/catalog/internal/config"
	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
	"github.com/utafrali/bookcatalog/services/catalog/internal/event"
	mongorepo "github.com/utafrali/bookcatalog/services/catalog/internal/repository/mongo"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// deterministicID maps (namespace, index) to a stable UUID-shaped string so
// re-runs hit the same documents.
func deterministicID(namespace string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", namespace, index)))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

// ---------------------------------------------------------------------------
// Vocabulary
// ---------------------------------------------------------------------------

var (
	titleHeads = []string{"The Silent", "A Song of", "Beyond the", "The Last", "Children of", "Echoes of", "The Hidden", "Letters from"}
	titleTails = []string{"Harbor", "Winter", "Machine", "Garden", "Empire", "River", "Archive", "Lighthouse"}
	authors    = []string{"Mara Quill", "Tobias Wren", "Ines Calder", "Oskar Vale", "Priya Nandan", "Leo Hartmann", "June Okafor", "Sofia Brandt"}
	genres     = []string{"Fantasy", "Science Fiction", "Mystery", "Romance", "History", "Biography", "Horror", "Poetry"}
	publishers = []string{"Northwind Press", "Harbor House", "Blue Fern", "Ashgrove Books"}
	languages  = []string{"English", "German", "French"}
	formats    = []string{"Hardcover", "Paperback", "Ebook"}
	series     = []string{"The Tidewater Cycle", "Glass Crown", "Ninefold"}
	names      = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Frances", "Ken"}
	blurbs     = []string{
		"Loved every page.",
		"Slow start, strong finish.",
		"Not for me.",
		"The ending stayed with me for weeks.",
		"Solid, if a little long.",
		"",
	}
)

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

func pick[T any](rng *rand.Rand, xs []T) T { return xs[rng.Intn(len(xs))] }

func pickN(rng *rand.Rand, xs []string, max int) []string {
	n := 1 + rng.Intn(max)
	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(out) < n {
		x := pick(rng, xs)
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func generateBooks(rng *rand.Rand, count int) []domain.NewBook {
	books := make([]domain.NewBook, 0, count)
	for i := 0; i < count; i++ {
		published := time.Date(1950+rng.Intn(75), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		b := domain.NewBook{
			ID:          deterministicID("book", i),
			Title:       fmt.Sprintf("%s %s", pick(rng, titleHeads), pick(rng, titleTails)),
			Description: fmt.Sprintf("A %s novel.", pick(rng, genres)),
			Authors:     pickN(rng, authors, 2),
			Genres:      pickN(rng, genres, 3),
			Publisher:   pick(rng, publishers),
			PageCount:   80 + rng.Intn(900),
			PublishDate: &published,
			ISBN:        fmt.Sprintf("978%010d", rng.Int63n(1e10)),
			Language:    pick(rng, languages),
			Format:      pick(rng, formats),
		}
		if rng.Intn(5) == 0 {
			b.Series = &domain.Series{Name: pick(rng, series), Position: 1 + rng.Intn(6)}
		}
		books = append(books, b)
	}
	return books
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	bookCount := getEnvInt("SEED_BOOKS", 500)
	userCount := getEnvInt("SEED_USERS", 40)
	reviewsPerUser := getEnvInt("SEED_REVIEWS_PER_USER", 25)
	slogger := logger.New("catalog-seed", "warn")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = cfg.MongoURI
	mongoCfg.Database = cfg.MongoDatabase
	client, err := database.NewMongoClient(ctx, mongoCfg, slogger)
	if err != nil {
		log.Fatalf("connect to mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.MongoDatabase)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}

	books := mongorepo.NewBookRepository(db)
	reviews := mongorepo.NewReviewRepository(db)
	users := mongorepo.NewUserRepository(db)
	catalog := service.NewCatalogService(books, slogger)
	userService := service.NewUserService(users, books, slogger)
	reviewService := service.NewReviewService(reviews, books, users, nil, event.NewProducer(nil, slogger), slogger)

	rng := rand.New(rand.NewSource(42))

	// 1. Books
	log.Printf("Inserting %d books...", bookCount)
	generated := generateBooks(rng, bookCount)
	created := 0
	for _, b := range generated {
		_, err := catalog.CreateBook(ctx, b)
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
		case err != nil:
			log.Printf("  WARNING: create book %s: %v", b.ID, err)
		default:
			created++
		}
	}
	log.Printf("  Created %d books (%d already present).", created, len(generated)-created)

	// 2. Readers and their reviews
	log.Printf("Creating %d readers with %d reviews each...", userCount, reviewsPerUser)
	reviewCount := 0
	for i := 0; i < userCount; i++ {
		u, err := userService.CreateUser(ctx, service.CreateUserInput{Name: fmt.Sprintf("%s %d", pick(rng, names), i)})
		if err != nil {
			log.Fatalf("create user: %v", err)
		}
		for _, idx := range rng.Perm(len(generated))[:min(reviewsPerUser, len(generated))] {
			_, err := reviewService.CreateReview(ctx, service.CreateReviewInput{
				UserID:      u.ID,
				BookID:      generated[idx].ID,
				Description: pick(rng, blurbs),
				Rating:      1 + rng.Intn(5),
			})
			if err != nil {
				log.Printf("  WARNING: create review: %v", err)
				continue
			}
			reviewCount++
		}
		wanted := generated[rng.Intn(len(generated))]
		if _, err := userService.AddToShelf(ctx, service.ShelfInput{UserID: u.ID, BookID: wanted.ID, Shelf: string(domain.ShelfWantToRead)}); err != nil {
			log.Printf("  WARNING: shelve book: %v", err)
		}
	}

	log.Printf("Seed complete! %d books, %d readers, %d reviews.", len(generated), userCount, reviewCount)
}
