package pagination

import "fmt"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a page-index window: Offset counts pages, not items, so the
// items shown are [Offset*Limit, Offset*Limit+Limit).
type Params struct {
	Offset int
	Limit  int
}

// New applies defaults for absent values and validates the result.
func New(offset, limit *int) (Params, error) {
	p := Params{Limit: DefaultLimit}
	if offset != nil {
		p.Offset = *offset
	}
	if limit != nil {
		p.Limit = *limit
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks offset >= 0 and 1 <= limit <= MaxLimit.
func (p Params) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("offset must be >= 0, got %d", p.Offset)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, p.Limit)
	}
	return nil
}

// Skip is the number of items before the window.
func (p Params) Skip() int {
	return p.Offset * p.Limit
}

// Bounds returns the half-open slice bounds of the window within total
// items. A window past the end yields start == end.
func (p Params) Bounds(total int) (start, end int) {
	start = p.Skip()
	if start > total {
		start = total
	}
	end = start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// Slice returns the window of items. The result shares the backing array.
func Slice[T any](items []T, p Params) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}

// Info describes where a window sits within a result.
type Info struct {
	TotalPages  int
	CurrentPage int
	IsLastPage  bool
}

// NewInfo computes page info for total items. CurrentPage is 1-based.
func NewInfo(total int, p Params) Info {
	totalPages := total / p.Limit
	if total%p.Limit > 0 {
		totalPages++
	}
	current := p.Offset + 1
	return Info{
		TotalPages:  totalPages,
		CurrentPage: current,
		IsLastPage:  current >= totalPages,
	}
}
