package query

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// Evaluate runs p over books in memory. It produces the same set and order
// as the Mongo translation of p. Books are always annotated with their
// rating fields, whether or not p contains a ComputeRating stage.
func Evaluate(p Pipeline, books []domain.Book) ([]domain.RatedBook, error) {
	out := make([]domain.RatedBook, 0, len(books))
	for _, b := range books {
		out = append(out, domain.Rate(b))
	}

	for _, stage := range p {
		switch s := stage.(type) {
		case TextMatch:
			title, err := regexp.Compile("(?i)" + s.TitlePattern())
			if err != nil {
				return nil, err
			}
			desc, err := regexp.Compile("(?i)" + s.DescriptionPattern())
			if err != nil {
				return nil, err
			}
			out = keep(out, func(b *domain.RatedBook) bool {
				return title.MatchString(b.Title) || desc.MatchString(b.Description)
			})
		case DateRange:
			out = keep(out, func(b *domain.RatedBook) bool {
				if b.PublishDate == nil {
					return false
				}
				if s.Before != nil && !b.PublishDate.Before(*s.Before) {
					return false
				}
				if s.After != nil && !b.PublishDate.After(*s.After) {
					return false
				}
				return true
			})
		case SetMembership:
			out = keep(out, func(b *domain.RatedBook) bool {
				if s.Field == FieldPublisher {
					return slices.Contains(s.Values, b.Publisher)
				}
				for _, a := range b.Authors {
					if slices.Contains(s.Values, a) {
						return true
					}
				}
				return false
			})
		case PageRange:
			out = keep(out, func(b *domain.RatedBook) bool {
				if s.Min != nil && b.PageCount < *s.Min {
					return false
				}
				return s.Max == nil || b.PageCount <= *s.Max
			})
		case ComputeRating:
		case Sort:
			slices.SortStableFunc(out, compareBooks(s.Spec))
		}
	}
	return out, nil
}

func keep(books []domain.RatedBook, pred func(*domain.RatedBook) bool) []domain.RatedBook {
	return slices.DeleteFunc(books, func(b domain.RatedBook) bool {
		return !pred(&b)
	})
}

// SortKey returns the value a spec sorts on.
func SortKey(b *domain.Book, field domain.SortField) string {
	switch field {
	case domain.SortByAuthor:
		return b.FirstAuthor()
	case domain.SortByPublisher:
		return b.Publisher
	default:
		return b.Title
	}
}

func compareBooks(spec *domain.SortSpec) func(a, b domain.RatedBook) int {
	return func(a, b domain.RatedBook) int {
		if spec != nil {
			c := strings.Compare(SortKey(&a.Book, spec.Field), SortKey(&b.Book, spec.Field))
			if spec.Direction == domain.SortDesc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	}
}
