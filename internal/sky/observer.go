package sky

import (
	"fmt"
	"math"

	"github.com/MichalZG/gaia-targets/internal/transform"
)

const (
	// ObserverElevationM is the fixed height above the WGS-84 ellipsoid
	// assigned to every observer.
	ObserverElevationM = 100.0

	// ObserverName is the display name given to built observers.
	ObserverName = "Observer"
)

// Observer is a named ground location anchored at ObserverElevationM.
// It is immutable once built and safe to share between goroutines.
type Observer struct {
	Name       string
	LonDeg     float64 // East, [0, 360)
	LatDeg     float64 // North, [-90, 90]
	ElevationM float64

	Position transform.ObserverPosition
}

// BuildObserver constructs an observer from a longitude (degrees East) and
// latitude (degrees North). Range checks belong to the caller; only values
// no location can be built from are rejected. Longitude is reduced into
// [0, 360).
func BuildObserver(longitude, latitude float64) (*Observer, error) {
	if !finite(longitude) || !finite(latitude) {
		return nil, fmt.Errorf("observer (%v, %v): %w", longitude, latitude, ErrInvalidCoordinate)
	}
	if latitude < -90 || latitude > 90 {
		return nil, fmt.Errorf("observer latitude %v outside [-90, 90]: %w", latitude, ErrInvalidCoordinate)
	}

	lon := math.Mod(longitude, 360)
	if lon < 0 {
		lon += 360
	}

	return &Observer{
		Name:       ObserverName,
		LonDeg:     lon,
		LatDeg:     latitude,
		ElevationM: ObserverElevationM,
		Position:   transform.NewObserverPosition(latitude, lon, ObserverElevationM),
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
