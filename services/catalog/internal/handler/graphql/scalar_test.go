package graphql

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
)

func TestParseDate_Accepted(t *testing.T) {
	june := time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"date only", "2005-06-01", june},
		{"date time utc", "2005-06-01T10:20:30Z", time.Date(2005, 6, 1, 10, 20, 30, 0, time.UTC)},
		{"offset with millis", "2005-06-01T10:20:30.123+02:00", time.Date(2005, 6, 1, 8, 20, 30, 123e6, time.UTC)},
		{"local date time", "2005-06-01T10:20:30", time.Date(2005, 6, 1, 10, 20, 30, 0, time.UTC)},
		{"numeric string", "1117584000000", june},
		{"padded numeric string", " 1117584000000 ", june},
		{"negative millis", "-1000", time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"int literal", int32(0), time.Unix(0, 0).UTC()},
		{"json number", float64(1117584000000), june},
		{"int64", int64(1117584000000), june},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDate_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"words", "yesterday"},
		{"empty", ""},
		{"fractional millis", 1.5},
		{"bool", true},
		{"month out of range", "2005-13-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDate(tt.input)
			require.Error(t, err)

			var parseErr *DateParseError
			assert.True(t, errors.As(err, &parseErr))
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, "INVALID_DATE", parseErr.Extensions()["code"])
		})
	}
}

func TestDate_UnmarshalGraphQL(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalGraphQL("2010-01-01"))
	assert.Equal(t, 2010, d.Year())

	err := d.UnmarshalGraphQL("soon")
	assert.Error(t, err)
	assert.Equal(t, 2010, d.Year(), "failed parse leaves the value untouched")

	assert.True(t, Date{}.ImplementsGraphQLType("Date"))
	assert.False(t, Date{}.ImplementsGraphQLType("String"))
}

func TestDate_MarshalJSON(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	d := Date{Time: time.Date(2005, 6, 1, 10, 20, 30, 123e6, cest)}

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2005-06-01T08:20:30.123Z"`, string(out))

	out, err = Date{Time: time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC)}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2005-06-01T00:00:00.000Z"`, string(out))
}

func TestNewDateAndPtr(t *testing.T) {
	assert.Nil(t, NewDate(nil))
	var nilDate *Date
	assert.Nil(t, nilDate.Ptr())

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, now, *NewDate(&now).Ptr())
}

func TestTagDateErrors(t *testing.T) {
	coerced := &gqlerrors.QueryError{Message: `could not unmarshal "x": invalid Date x: bad`}
	typed := &gqlerrors.QueryError{
		Message:       "invalid input",
		ResolverError: &DateParseError{Input: "x"},
		Extensions:    map[string]interface{}{"code": "INVALID_INPUT"},
	}
	other := &gqlerrors.QueryError{Message: "limit must be between 1 and 100"}

	tagDateErrors([]*gqlerrors.QueryError{coerced, typed, other})

	assert.Equal(t, "INVALID_DATE", coerced.Extensions["code"])
	assert.Equal(t, "INVALID_DATE", typed.Extensions["code"])
	assert.Nil(t, other.Extensions)
}
