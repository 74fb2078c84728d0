package visibility

import (
	"fmt"
	"math"
	"time"

	"github.com/MichalZG/gaia-targets/internal/sky"
)

// DefaultOffsets are the hour offsets shown by the dashboard.
var DefaultOffsets = []int{0, 3, 6}

// Query is the raw dashboard input: where, which day, and the starting UT hour.
type Query struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Date      string  `json:"date"`
	Hour      int     `json:"hour"`
}

// Request is a validated Query with the base instant resolved.
type Request struct {
	Longitude float64
	Latitude  float64
	Base      time.Time
}

// ValidateLocation checks longitude ∈ [0, 360) and latitude ∈ [-90, 90].
func ValidateLocation(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < 0 || lon >= 360 {
		return fmt.Errorf("%w: longitude %v outside [0, 360)", sky.ErrInvalidCoordinate, lon)
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", sky.ErrInvalidCoordinate, lat)
	}
	return nil
}

// Resolve validates the location and parses the base instant.
func (q Query) Resolve() (Request, error) {
	if err := ValidateLocation(q.Longitude, q.Latitude); err != nil {
		return Request{}, err
	}
	base, err := sky.ParseMoment(q.Date, q.Hour)
	if err != nil {
		return Request{}, err
	}
	return Request{Longitude: q.Longitude, Latitude: q.Latitude, Base: base}, nil
}

// ObserverInfo describes the observer a Result was computed for.
type ObserverInfo struct {
	Name       string  `json:"name"`
	Longitude  float64 `json:"lon"`
	Latitude   float64 `json:"lat"`
	ElevationM float64 `json:"elevation_m"`
}

// Row is one catalog target in the table feed. Values holds every column as
// display text; Alt repeats the altitudes numerically, one per offset.
type Row struct {
	Values map[string]string `json:"values"`
	Alt    []float64         `json:"alt"`
}

// PlotPoint is one target on the polar plot. R is the zenith distance
// (90 - Alt) used as the plot radius.
type PlotPoint struct {
	Name string  `json:"name"`
	Az   float64 `json:"az"`
	Alt  float64 `json:"alt"`
	R    float64 `json:"r"`
}

// PlotSeries holds the polar plot points for one offset.
type PlotSeries struct {
	Offset int         `json:"offset"`
	Label  string      `json:"label"`
	Points []PlotPoint `json:"points"`
}

// Result is one full recomputation of the catalog at every offset. It is
// never modified after Compute returns, so it may be shared and cached.
type Result struct {
	Base     time.Time    `json:"base"`
	Observer ObserverInfo `json:"observer"`
	Offsets  []int        `json:"offsets"`
	Columns  []string     `json:"columns"`
	Rows     []Row        `json:"rows"`
	Plot     []PlotSeries `json:"plot"`
}

// Table is the table surface of a Result.
type Table struct {
	Base    time.Time `json:"base"`
	Columns []string  `json:"columns"`
	Rows    []Row     `json:"rows"`
}

// Table returns the table surface.
func (r *Result) Table() Table {
	return Table{Base: r.Base, Columns: r.Columns, Rows: r.Rows}
}

// PlotFor returns the plot series for one offset.
func (r *Result) PlotFor(offset int) (PlotSeries, bool) {
	for _, s := range r.Plot {
		if s.Offset == offset {
			return s, true
		}
	}
	return PlotSeries{}, false
}
