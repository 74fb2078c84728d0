package transform

import (
	"math"
	"time"
)

// ApparentDirection returns the true-of-date equatorial direction of a
// target given by its J2000 (ICRS) right ascension and declination in degrees:
// precession, then annual aberration, then nutation.
func ApparentDirection(raDeg, decDeg float64, t time.Time) Vec3 {
	T := JulianCenturies(t)
	return apparentDirection(raDeg, decDeg, T, NutationAt(T))
}

func apparentDirection(raDeg, decDeg, T float64, n Nutation) Vec3 {
	v := FromSpherical(raDeg*degToRad, decDeg*degToRad)
	v = PrecessionAt(T).Precess(v)
	v = Aberrate(v, T, n.MeanObliquity)
	return n.Nutate(v)
}

// EquatorialToHorizontal computes altitude and azimuth of a J2000 RA/Dec
// target (degrees) for the observer at UTC instant t. The true-of-date
// direction is rotated into the Earth-fixed frame by GAST and then into the
// observer's SEZ frame.
func EquatorialToHorizontal(obs ObserverPosition, raDeg, decDeg float64, t time.Time) Horizontal {
	T := JulianCenturies(t)
	n := NutationAt(T)

	v := apparentDirection(raDeg, decDeg, T, n)
	gast := normalizeRad(GMST(t) + n.DPsi*math.Cos(n.TrueObliquity()))
	return DirectionToHorizontal(obs, R3(v, gast))
}
