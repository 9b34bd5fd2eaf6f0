package query

import "github.com/utafrali/bookcatalog/services/catalog/internal/domain"

// Build translates f into a pipeline. Absent constraints produce no stage.
// Genres and MinRating are never represented here; see the facet package.
func Build(f domain.FilterInput) Pipeline {
	var p Pipeline

	if text := f.Search(); text != "" {
		p = append(p, TextMatch{Text: text})
	}
	if f.BeforeDate != nil || f.AfterDate != nil {
		p = append(p, DateRange{Before: f.BeforeDate, After: f.AfterDate})
	}
	if len(f.Authors) > 0 {
		p = append(p, SetMembership{Field: FieldAuthors, Values: f.Authors})
	}
	if len(f.Publishers) > 0 {
		p = append(p, SetMembership{Field: FieldPublisher, Values: f.Publishers})
	}
	if f.MinPages != nil || f.MaxPages != nil {
		p = append(p, PageRange{Min: f.MinPages, Max: f.MaxPages})
	}
	p = append(p, ComputeRating{}, Sort{Spec: f.Sort})

	return p
}
