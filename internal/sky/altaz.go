package sky

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/apparent"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"

	"github.com/MichalZG/gaia-targets/internal/transform"
)

// AltAz is a target's position in an observer's horizon frame, in degrees.
// Values produced by Compute are rounded to one decimal.
type AltAz struct {
	Alt float64 `json:"alt"` // [-90, 90]
	Az  float64 `json:"az"`  // [0, 360), from North through East
}

// Transformer is the position-math capability the pipeline depends on:
// unrounded altitude/azimuth of a J2000 RA/Dec target for an observer at an
// instant.
type Transformer interface {
	ToAltAz(obs *Observer, instant time.Time, raDeg, decDeg float64) (AltAz, error)
}

// ApparentPlace is the default Transformer, backed by the Meeus
// algorithms: precession, nutation and aberration to the apparent place of
// date, then apparent sidereal time and the horizontal rotation.
type ApparentPlace struct{}

// ToAltAz implements Transformer.
func (ApparentPlace) ToAltAz(obs *Observer, instant time.Time, raDeg, decDeg float64) (AltAz, error) {
	jd := julian.TimeToJD(instant.UTC())

	j2000 := &coord.Equatorial{RA: unit.RAFromDeg(raDeg), Dec: unit.AngleFromDeg(decDeg)}
	var eq coord.Equatorial
	apparent.Position(j2000, &eq, 2000, base.JDEToJulianYear(jd), 0, 0)

	// globe longitudes are positive West.
	g := globe.Coord{Lat: unit.AngleFromDeg(obs.LatDeg), Lon: unit.AngleFromDeg(-obs.LonDeg)}
	var hz coord.Horizontal
	hz.EqToHz(&eq, &g, sidereal.Apparent(jd))

	// Meeus measures azimuth from the South.
	return AltAz{Alt: hz.Alt.Deg(), Az: math.Mod(hz.Az.Deg()+540, 360)}, nil
}

// VectorChain is the rotation-matrix Transformer in internal/transform:
// IAU 1976 precession, IAU 1980 nutation and annual aberration applied to a
// unit vector, then GAST and the observer's SEZ rotation. It agrees with
// ApparentPlace to well under the displayed precision.
type VectorChain struct{}

// ToAltAz implements Transformer.
func (VectorChain) ToAltAz(obs *Observer, instant time.Time, raDeg, decDeg float64) (AltAz, error) {
	h := transform.EquatorialToHorizontal(obs.Position, raDeg, decDeg, instant)
	return AltAz{Alt: h.AltitudeDeg, Az: h.AzimuthDeg}, nil
}

// DefaultTransformer is used by Compute.
var DefaultTransformer Transformer = ApparentPlace{}

// TransformerByName maps a configuration name to a Transformer. The empty
// name selects DefaultTransformer.
func TransformerByName(name string) (Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "meeus":
		return DefaultTransformer, nil
	case "vector":
		return VectorChain{}, nil
	}
	return nil, fmt.Errorf("unknown transformer %q (want meeus or vector)", name)
}

// Compute returns the rounded altitude/azimuth of the target at (raDeg, decDeg)
// for obs at base + offsetHours, using DefaultTransformer.
func Compute(obs *Observer, base time.Time, offsetHours int, raDeg, decDeg float64) (AltAz, error) {
	return ComputeWith(DefaultTransformer, obs, base, offsetHours, raDeg, decDeg)
}

// ComputeWith is Compute with an explicit Transformer. It is a pure function
// of its arguments as long as tr is.
func ComputeWith(tr Transformer, obs *Observer, base time.Time, offsetHours int, raDeg, decDeg float64) (AltAz, error) {
	if obs == nil {
		return AltAz{}, errors.New("nil observer")
	}
	if base.IsZero() {
		return AltAz{}, fmt.Errorf("zero base time: %w", ErrInvalidInstant)
	}
	if err := ValidateEquatorial(raDeg, decDeg); err != nil {
		return AltAz{}, err
	}

	raw, err := tr.ToAltAz(obs, ObservationInstant(base, offsetHours), raDeg, decDeg)
	if err != nil {
		return AltAz{}, err
	}
	if !finite(raw.Alt) || !finite(raw.Az) {
		return AltAz{}, fmt.Errorf("non-finite result for (%v, %v): %w", raDeg, decDeg, ErrInvalidCoordinate)
	}

	az := Round1(raw.Az)
	if az >= 360 {
		az -= 360
	}
	return AltAz{Alt: Round1(raw.Alt), Az: az}, nil
}

// ValidateEquatorial checks RA ∈ [0, 360) and Dec ∈ [-90, 90], both finite.
func ValidateEquatorial(raDeg, decDeg float64) error {
	if !finite(raDeg) || raDeg < 0 || raDeg >= 360 {
		return fmt.Errorf("RA %v outside [0, 360): %w", raDeg, ErrInvalidCoordinate)
	}
	if !finite(decDeg) || decDeg < -90 || decDeg > 90 {
		return fmt.Errorf("Dec %v outside [-90, 90]: %w", decDeg, ErrInvalidCoordinate)
	}
	return nil
}

// Round1 rounds to one decimal place, half away from zero. Negative zero is
// folded to zero so it never renders as "-0.0".
func Round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0
	}
	return r
}
