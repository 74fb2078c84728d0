package transform

// PrecessionAngles holds the IAU 1976 (Lieske) equatorial precession angles
// from J2000.0 to the epoch of date, in radians.
type PrecessionAngles struct {
	Zeta, Z, Theta float64
}

// PrecessionAt returns the precession angles for T Julian centuries after J2000.0.
//
//	ζ = 2306.2181"T + 0.30188"T² + 0.017998"T³
//	z = 2306.2181"T + 1.09468"T² + 0.018203"T³
//	θ = 2004.3109"T - 0.42665"T² - 0.041833"T³
func PrecessionAt(T float64) PrecessionAngles {
	T2 := T * T
	T3 := T2 * T
	return PrecessionAngles{
		Zeta:  (2306.2181*T + 0.30188*T2 + 0.017998*T3) * arcsecToRad,
		Z:     (2306.2181*T + 1.09468*T2 + 0.018203*T3) * arcsecToRad,
		Theta: (2004.3109*T - 0.42665*T2 - 0.041833*T3) * arcsecToRad,
	}
}

// Precess rotates a J2000 mean-equator direction to the mean equator and
// equinox of date: P = R3(-z)·R2(θ)·R3(-ζ).
func (p PrecessionAngles) Precess(v Vec3) Vec3 {
	return R3(R2(R3(v, -p.Zeta), p.Theta), -p.Z)
}
