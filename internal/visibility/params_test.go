package visibility

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalZG/gaia-targets/internal/sky"
)

var testDefaults = Defaults{Longitude: 37, Latitude: 37, Hour: 22}

func TestParseQuery_Defaults(t *testing.T) {
	now := time.Date(2024, 3, 20, 3, 4, 5, 0, time.FixedZone("X", -5*3600))

	q, err := ParseQuery(url.Values{}, testDefaults, now)
	require.NoError(t, err)
	assert.Equal(t, Query{Longitude: 37, Latitude: 37, Date: "2024-03-20", Hour: 22}, q)
}

func TestParseQuery_Overrides(t *testing.T) {
	v := url.Values{"lon": {"12.5"}, "lat": {"-33.25"}, "date": {"2024-05-01T00:00:00"}, "hour": {"3"}}

	q, err := ParseQuery(v, testDefaults, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Query{Longitude: 12.5, Latitude: -33.25, Date: "2024-05-01T00:00:00", Hour: 3}, q)

	req, err := q.Resolve()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), req.Base)
}

func TestParseQuery_Malformed(t *testing.T) {
	tests := []struct {
		name string
		v    url.Values
		want error
	}{
		{"lon text", url.Values{"lon": {"east"}}, sky.ErrInvalidCoordinate},
		{"lat text", url.Values{"lat": {"1,5"}}, sky.ErrInvalidCoordinate},
		{"hour float", url.Values{"hour": {"3.5"}}, sky.ErrInvalidInstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.v, testDefaults, time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseQuery_BadDateSurfacesOnResolve(t *testing.T) {
	q, err := ParseQuery(url.Values{"date": {"not-a-date"}}, testDefaults, time.Now())
	require.NoError(t, err)

	_, err = q.Resolve()
	assert.ErrorIs(t, err, sky.ErrInvalidInstant)
}

func TestParseLocation_IgnoresOtherParameters(t *testing.T) {
	v := url.Values{"lon": {"12.5"}, "hour": {"x"}, "date": {"garbage"}}

	lon, lat, err := ParseLocation(v, testDefaults)
	require.NoError(t, err)
	assert.Equal(t, 12.5, lon)
	assert.Equal(t, 37.0, lat)

	_, _, err = ParseLocation(url.Values{"lat": {"north"}}, testDefaults)
	assert.ErrorIs(t, err, sky.ErrInvalidCoordinate)
}
