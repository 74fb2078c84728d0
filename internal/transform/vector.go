// Package transform provides the coordinate math behind target visibility:
// sidereal time, the J2000 → true-of-date chain (precession, nutation,
// annual aberration), the Earth rotation into a Greenwich-fixed frame, and the
// SEZ topocentric rotation that yields altitude and azimuth for a WGS-84
// ground observer.
//
// Method: IAU 1976 precession, the dominant IAU 1980 nutation terms, and a
// circular-orbit annual aberration. Polar motion, UT1-UTC, light deflection
// and refraction are ignored, which keeps results within a few arcseconds of
// a full IAU 2006/2000A reduction over this century (well inside the 0.1°
// display resolution).
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3;
// Meeus, "Astronomical Algorithms", Ch. 21-23.
package transform

import "math"

// Vec3 is a Cartesian 3-vector. Directions are kept as unit vectors.
type Vec3 struct {
	X, Y, Z float64
}

// FromSpherical builds a unit vector from a longitude-like angle (RA) and a
// latitude-like angle (Dec), both in radians.
func FromSpherical(lon, lat float64) Vec3 {
	cosLat := math.Cos(lat)
	return Vec3{
		X: cosLat * math.Cos(lon),
		Y: cosLat * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

// Spherical returns the longitude-like angle in [0, 2π) and the
// latitude-like angle in [-π/2, π/2] of v, in radians.
func (v Vec3) Spherical() (lon, lat float64) {
	r := v.Norm()
	if r == 0 {
		return 0, 0
	}
	lon = normalizeRad(math.Atan2(v.Y, v.X))
	lat = math.Asin(clampUnit(v.Z / r))
	return lon, lat
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Unit returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	r := v.Norm()
	if r == 0 {
		return v
	}
	return Vec3{v.X / r, v.Y / r, v.Z / r}
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{v.X * k, v.Y * k, v.Z * k}
}

// The R1/R2/R3 functions rotate the reference frame (not the vector) by
// angle a about the X, Y and Z axes respectively, following Vallado's
// ROT1/ROT2/ROT3 convention. R3(GMST) is the classic inertial → Earth-fixed
// rotation:
//
//	x' =  x·cos a + y·sin a
//	y' = -x·sin a + y·cos a

// R1 rotates the frame about the X axis.
func R1(v Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{
		X: v.X,
		Y: c*v.Y + s*v.Z,
		Z: -s*v.Y + c*v.Z,
	}
}

// R2 rotates the frame about the Y axis.
func R2(v Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{
		X: c*v.X - s*v.Z,
		Y: v.Y,
		Z: s*v.X + c*v.Z,
	}
}

// R3 rotates the frame about the Z axis.
func R3(v Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{
		X: c*v.X + s*v.Y,
		Y: -s*v.X + c*v.Y,
		Z: v.Z,
	}
}

// clampUnit clamps x to [-1, 1] so Asin/Acos never see rounding overshoot.
func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
