package visibility

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MichalZG/gaia-targets/internal/sky"
)

// Defaults fill in query parameters the client left out.
type Defaults struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Hour      int     `json:"hour"`
}

// ParseQuery reads lon, lat, date and hour from URL values. Missing values
// take the defaults; a missing date is today (UTC) at now. Malformed numbers
// are reported with the matching error kind.
func ParseQuery(values url.Values, d Defaults, now time.Time) (Query, error) {
	q := Query{
		Longitude: d.Longitude,
		Latitude:  d.Latitude,
		Date:      now.UTC().Format("2006-01-02"),
		Hour:      d.Hour,
	}

	lon, lat, err := ParseLocation(values, d)
	if err != nil {
		return q, err
	}
	q.Longitude, q.Latitude = lon, lat

	if v := strings.TrimSpace(values.Get("date")); v != "" {
		q.Date = v
	}
	if v := strings.TrimSpace(values.Get("hour")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("%w: hour %q is not an integer", sky.ErrInvalidInstant, v)
		}
		q.Hour = n
	}

	return q, nil
}

// ParseLocation reads only lon and lat from URL values, falling back to the
// defaults. Other parameters are ignored.
func ParseLocation(values url.Values, d Defaults) (lon, lat float64, err error) {
	lon, lat = d.Longitude, d.Latitude
	if v := strings.TrimSpace(values.Get("lon")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return lon, lat, fmt.Errorf("%w: lon %q is not a number", sky.ErrInvalidCoordinate, v)
		}
		lon = f
	}
	if v := strings.TrimSpace(values.Get("lat")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return lon, lat, fmt.Errorf("%w: lat %q is not a number", sky.ErrInvalidCoordinate, v)
		}
		lat = f
	}
	return lon, lat, nil
}
