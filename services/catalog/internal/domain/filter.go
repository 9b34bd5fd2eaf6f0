package domain

import (
	"fmt"
	"strings"
	"time"
)

// SortField is a sortable book attribute.
type SortField string

const (
	SortByTitle     SortField = "title"
	SortByAuthor    SortField = "author"
	SortByPublisher SortField = "publisher"
)

// SortDirection orders a sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec orders catalog results.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// ParseSortSpec accepts lower-case names or the GraphQL enum spelling.
func ParseSortSpec(field, direction string) (SortSpec, error) {
	spec := SortSpec{
		Field:     SortField(strings.ToLower(field)),
		Direction: SortDirection(strings.ToLower(direction)),
	}
	switch spec.Field {
	case SortByTitle, SortByAuthor, SortByPublisher:
	default:
		return SortSpec{}, fmt.Errorf("unknown sort field %q", field)
	}
	switch spec.Direction {
	case SortAsc, SortDesc:
	default:
		return SortSpec{}, fmt.Errorf("unknown sort direction %q", direction)
	}
	return spec, nil
}

// FilterInput narrows the catalog. Nil and empty values mean no constraint.
// Genres and MinRating are applied after the store fetch so facet counts
// can relax them one at a time.
type FilterInput struct {
	SearchText *string
	Sort       *SortSpec
	BeforeDate *time.Time
	AfterDate  *time.Time
	Authors    []string
	Genres     []string
	Publishers []string
	MinPages   *int
	MaxPages   *int
	MinRating  *int
}

// Validate rejects bounds that cannot be satisfied by construction.
func (f FilterInput) Validate() error {
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > MaxStar) {
		return fmt.Errorf("minRating must be between 0 and %d, got %d", MaxStar, *f.MinRating)
	}
	if f.MinPages != nil && *f.MinPages < 0 {
		return fmt.Errorf("minPages must be >= 0, got %d", *f.MinPages)
	}
	if f.MaxPages != nil && *f.MaxPages < 0 {
		return fmt.Errorf("maxPages must be >= 0, got %d", *f.MaxPages)
	}
	return nil
}

// Search returns the trimmed search text, or "" when absent.
func (f FilterInput) Search() string {
	if f.SearchText == nil {
		return ""
	}
	return strings.TrimSpace(*f.SearchText)
}
