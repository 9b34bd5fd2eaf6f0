// Package query turns a catalog filter into a typed sequence of pipeline
// stages. The stages are store-neutral: the Mongo repository translates
// them into aggregation stages and Evaluate runs them in memory.
package query

import (
	"regexp"
	"time"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

// Kind tags a Stage variant.
type Kind int

const (
	KindTextMatch Kind = iota + 1
	KindDateRange
	KindSetMembership
	KindPageRange
	KindComputeRating
	KindSort
)

func (k Kind) String() string {
	switch k {
	case KindTextMatch:
		return "TextMatch"
	case KindDateRange:
		return "DateRange"
	case KindSetMembership:
		return "SetMembership"
	case KindPageRange:
		return "PageRange"
	case KindComputeRating:
		return "ComputeRating"
	case KindSort:
		return "Sort"
	}
	return "Unknown"
}

// Stage is one step of a Pipeline. The concrete types below are the only
// implementations.
type Stage interface {
	Kind() Kind
}

// TextMatch keeps books whose title contains Text or whose description
// contains Text as a whole word, both case-insensitively.
type TextMatch struct {
	Text string
}

func (TextMatch) Kind() Kind { return KindTextMatch }

// TitlePattern is the regular expression source for the title match.
func (s TextMatch) TitlePattern() string {
	return regexp.QuoteMeta(s.Text)
}

// DescriptionPattern is the regular expression source for the whole-word
// description match.
func (s TextMatch) DescriptionPattern() string {
	return `\b` + regexp.QuoteMeta(s.Text) + `\b`
}

// DateRange keeps books published strictly between the bounds. A nil bound
// is open; a book without a publish date never matches.
type DateRange struct {
	Before *time.Time
	After  *time.Time
}

func (DateRange) Kind() Kind { return KindDateRange }

// MembershipField names the book attribute a SetMembership tests.
type MembershipField string

const (
	FieldAuthors   MembershipField = "authors"
	FieldPublisher MembershipField = "publisher"
)

// SetMembership keeps books whose Field intersects Values. Values is never
// empty.
type SetMembership struct {
	Field  MembershipField
	Values []string
}

func (SetMembership) Kind() Kind { return KindSetMembership }

// PageRange keeps books whose page count lies within the inclusive bounds.
type PageRange struct {
	Min *int
	Max *int
}

func (PageRange) Kind() Kind { return KindPageRange }

// ComputeRating annotates each book with totalRatings, averageRating and
// roundedAverageRating derived from its histogram.
type ComputeRating struct{}

func (ComputeRating) Kind() Kind { return KindComputeRating }

// Sort orders the results. A nil Spec keeps identifier order. The
// identifier is always the final tie-break so pages are stable.
type Sort struct {
	Spec *domain.SortSpec
}

func (Sort) Kind() Kind { return KindSort }

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Kinds lists the stage kinds in order.
func (p Pipeline) Kinds() []Kind {
	out := make([]Kind, len(p))
	for i, s := range p {
		out[i] = s.Kind()
	}
	return out
}
