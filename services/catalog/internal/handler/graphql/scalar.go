package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
)

const (
	dateOutputLayout = "2006-01-02T15:04:05.000Z07:00"
	dateErrorPrefix  = "invalid Date "
	dateErrorCode    = "INVALID_DATE"
)

// Accepted string layouts, tried in order. RFC 3339 parsing also takes
// fractional seconds.
var dateInputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DateParseError reports a Date input that is neither an ISO date string
// nor an epoch-milliseconds count.
type DateParseError struct {
	Input any
	Err   error
}

func (e *DateParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(dateErrorPrefix+"%v: %v", e.Input, e.Err)
	}
	return fmt.Sprintf(dateErrorPrefix+"%v", e.Input)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// Is makes every DateParseError match apperrors.ErrInvalidInput.
func (e *DateParseError) Is(target error) bool { return target == apperrors.ErrInvalidInput }

// Extensions exposes the error code to GraphQL clients.
func (e *DateParseError) Extensions() map[string]any {
	return map[string]any{"code": dateErrorCode}
}

// isDateError reports whether qe came from a rejected Date input. Argument
// coercion failures reach the response as bare messages, so the message
// is checked when no typed cause survives.
func isDateError(qe *gqlerrors.QueryError) bool {
	var de *DateParseError
	if errors.As(qe.ResolverError, &de) {
		return true
	}
	return strings.Contains(qe.Message, dateErrorPrefix)
}

// tagDateErrors sets the INVALID_DATE code on every Date coercion error.
func tagDateErrors(errs []*gqlerrors.QueryError) {
	for _, qe := range errs {
		if !isDateError(qe) {
			continue
		}
		if qe.Extensions == nil {
			qe.Extensions = make(map[string]interface{}, 1)
		}
		qe.Extensions["code"] = dateErrorCode
	}
}

// Date is the GraphQL Date scalar.
type Date struct {
	time.Time
}

// NewDate wraps t, or returns nil when t is nil.
func NewDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// ImplementsGraphQLType binds Date to the schema scalar.
func (Date) ImplementsGraphQLType(name string) bool { return name == "Date" }

// UnmarshalGraphQL decodes a literal or variable value.
func (d *Date) UnmarshalGraphQL(input any) error {
	t, err := ParseDate(input)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(dateOutputLayout))
}

// Ptr returns the wrapped time, or nil for a nil Date.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// ParseDate converts a scalar input into a UTC time.
func ParseDate(input any) (time.Time, error) {
	switch v := input.(type) {
	case string:
		return parseDateString(v)
	case int32:
		return fromMillis(int64(v)), nil
	case int:
		return fromMillis(int64(v)), nil
	case int64:
		return fromMillis(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return time.Time{}, &DateParseError{Input: input, Err: fmt.Errorf("milliseconds must be an integer")}
		}
		return fromMillis(int64(v)), nil
	case json.Number:
		return parseDateString(v.String())
	}
	return time.Time{}, &DateParseError{Input: input, Err: fmt.Errorf("unsupported type %T", input)}
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &DateParseError{Input: s, Err: fmt.Errorf("empty string")}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromMillis(ms), nil
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &DateParseError{Input: strconv.Quote(s)}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
