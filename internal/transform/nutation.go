package transform

import "math"

const degToRad = math.Pi / 180.0

// Nutation holds nutation in longitude and obliquity plus the mean obliquity
// of the ecliptic, all in radians.
type Nutation struct {
	DPsi, DEps    float64
	MeanObliquity float64
}

// NutationAt evaluates the four dominant IAU 1980 nutation terms
// (Meeus Ch. 22, ~0.5" accuracy) for T Julian centuries after J2000.0.
func NutationAt(T float64) Nutation {
	omega := (125.04452 - 1934.136261*T) * degToRad // Moon's ascending node
	L := (280.4665 + 36000.7698*T) * degToRad       // Sun mean longitude
	Lp := (218.3165 + 481267.8813*T) * degToRad     // Moon mean longitude

	dPsi := -17.20*math.Sin(omega) - 1.32*math.Sin(2*L) - 0.23*math.Sin(2*Lp) + 0.21*math.Sin(2*omega)
	dEps := 9.20*math.Cos(omega) + 0.57*math.Cos(2*L) + 0.10*math.Cos(2*Lp) - 0.09*math.Cos(2*omega)

	// Mean obliquity, Meeus Eq. 22.2: 23°26'21.448" = 84381.448".
	eps0 := 84381.448 - 46.8150*T - 0.00059*T*T + 0.001813*T*T*T

	return Nutation{
		DPsi:          dPsi * arcsecToRad,
		DEps:          dEps * arcsecToRad,
		MeanObliquity: eps0 * arcsecToRad,
	}
}

// TrueObliquity returns ε = ε0 + Δε.
func (n Nutation) TrueObliquity() float64 {
	return n.MeanObliquity + n.DEps
}

// Nutate rotates a mean-of-date direction to true-of-date:
// N = R1(-ε)·R3(-Δψ)·R1(ε0).
func (n Nutation) Nutate(v Vec3) Vec3 {
	return R1(R3(R1(v, n.MeanObliquity), -n.DPsi), -n.TrueObliquity())
}
