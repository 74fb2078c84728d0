package transform

import "math"

// aberrationConstant is κ = 20.49552" in radians.
const aberrationConstant = 20.49552 * arcsecToRad

// SunLongitude returns the Sun's geometric true longitude in radians for T
// Julian centuries after J2000.0 (Meeus Ch. 25, ~0.01° accuracy).
func SunLongitude(T float64) float64 {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := (357.52911 + 35999.05029*T - 0.0001537*T*T) * degToRad
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)
	return normalizeRad((L0 + C) * degToRad)
}

// Aberrate applies annual aberration to a mean-of-date direction. The
// Earth's velocity is approximated by a circular orbit: the apex of the
// Earth's way lies 90° behind the Sun on the ecliptic, and the apparent
// direction shifts toward it by κ·sin(separation).
func Aberrate(v Vec3, T, meanObliquity float64) Vec3 {
	lambda := SunLongitude(T)
	apex := Vec3{
		X: math.Sin(lambda),
		Y: -math.Cos(lambda) * math.Cos(meanObliquity),
		Z: -math.Cos(lambda) * math.Sin(meanObliquity),
	}
	return v.Add(apex.Scale(aberrationConstant)).Unit()
}
