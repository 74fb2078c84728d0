package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TestJulianDate verifies our Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
		{
			name:     "non-UTC location is converted",
			time:     time.Date(2000, 1, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
			expected: 2451545.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			diff := math.Abs(got - tt.expected)
			if diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestJulianDateMatchesGoSatellite cross-checks against go-satellite's JDay.
func TestJulianDateMatchesGoSatellite(t *testing.T) {
	times := []time.Time{
		time.Date(1987, 4, 10, 19, 21, 0, 0, time.UTC),
		time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC),
	}
	for _, tm := range times {
		ref := satellite.JDay(tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
		if got := JulianDate(tm); math.Abs(got-ref) > 1e-8 {
			t.Errorf("JulianDate(%v) = %.10f, go-satellite = %.10f", tm, got, ref)
		}
	}
}

// TestGMST validates our GMST calculation against the go-satellite library's
// GSTimeFromDate function, which uses the same IAU-82 model.
func TestGMST(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{
			name: "J2000.0 epoch",
			time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "Vallado example date",
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC), // integer seconds for library compat
		},
		{
			name: "dashboard default start hour",
			time: time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC),
		},
		{
			name: "six hours later, next day",
			time: time.Date(2024, 3, 21, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			our := GMST(tt.time)
			// go-satellite's GSTimeFromDate returns GMST in radians.
			ref := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			diff := math.Abs(our - ref)
			// Allow small difference for float precision; 1e-8 radians ≈ 0.06 arcsec.
			if diff > 1e-8 {
				t.Errorf("GMST(%v) = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", tt.time, our, ref, diff)
			}
		})
	}
}

// TestSiderealTimeMeeus uses Meeus Example 12.a (1987 April 10, 0h UT):
// mean sidereal time 13h10m46.3668s, apparent 13h10m46.1351s.
func TestSiderealTimeMeeus(t *testing.T) {
	tm := time.Date(1987, 4, 10, 0, 0, 0, 0, time.UTC)
	toSeconds := func(rad float64) float64 { return rad / (2 * math.Pi) * 86400 }

	wantMean := 13*3600 + 10*60 + 46.3668
	if got := toSeconds(GMST(tm)); math.Abs(got-wantMean) > 0.001 {
		t.Errorf("GMST = %.4f s, want %.4f s", got, wantMean)
	}

	// Low-order nutation is good to ~0.5", i.e. ~0.03 s of time.
	wantApparent := 13*3600 + 10*60 + 46.1351
	if got := toSeconds(GAST(tm)); math.Abs(got-wantApparent) > 0.05 {
		t.Errorf("GAST = %.4f s, want %.4f s", got, wantApparent)
	}
}

// TestPrecessionMeeus uses Meeus Example 21.b (θ Persei, J2000 → 2028 Nov 13.19 TD).
func TestPrecessionMeeus(t *testing.T) {
	v := FromSpherical(41.054063*degToRad, 49.227750*degToRad)
	ra, dec := PrecessionAt(0.288670500).Precess(v).Spherical()

	if got := ra / degToRad; math.Abs(got-41.547214) > 2e-5 {
		t.Errorf("precessed RA = %.6f deg, want 41.547214", got)
	}
	if got := dec / degToRad; math.Abs(got-49.348483) > 2e-5 {
		t.Errorf("precessed Dec = %.6f deg, want 49.348483", got)
	}
}

// TestNutationMeeus uses Meeus Example 22.a (1987 April 10, 0h TD):
// Δψ = -3.788", Δε = +9.443", ε0 = 23°26'27.407".
func TestNutationMeeus(t *testing.T) {
	n := NutationAt(-0.127296372348)

	if got := n.DPsi / arcsecToRad; math.Abs(got-(-3.788)) > 0.5 {
		t.Errorf("Δψ = %.3f\", want -3.788\"", got)
	}
	if got := n.DEps / arcsecToRad; math.Abs(got-9.443) > 0.1 {
		t.Errorf("Δε = %.3f\", want 9.443\"", got)
	}
	wantEps0 := 23*3600 + 26*60 + 27.407
	if got := n.MeanObliquity / arcsecToRad; math.Abs(got-wantEps0) > 0.01 {
		t.Errorf("ε0 = %.3f\", want %.3f\"", got, wantEps0)
	}
}

// TestAberrationMagnitude checks that annual aberration never moves a
// direction by more than κ and never leaves it non-unit.
func TestAberrationMagnitude(t *testing.T) {
	for day := 0; day < 365; day += 30 {
		tm := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		T := JulianCenturies(tm)
		n := NutationAt(T)
		for _, v := range []Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, Vec3{1, -1, 1}.Unit()} {
			a := Aberrate(v, T, n.MeanObliquity)
			if math.Abs(a.Norm()-1) > 1e-12 {
				t.Fatalf("aberrated vector not unit: %v", a.Norm())
			}
			dx, dy, dz := a.X-v.X, a.Y-v.Y, a.Z-v.Z
			shift := math.Sqrt(dx*dx+dy*dy+dz*dz) / arcsecToRad
			if shift > 20.5 {
				t.Errorf("day %d: aberration shift %.2f\" exceeds κ", day, shift)
			}
		}
	}
}

// TestEquatorialToHorizontal_CelestialPoles checks that the J2000 poles sit
// at ±latitude (to within precession since J2000) at any hour.
func TestEquatorialToHorizontal_CelestialPoles(t *testing.T) {
	obs := NewObserverPosition(37, 37, 100)
	base := time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC)

	for _, off := range []int{0, 3, 6, 9, 12} {
		tm := base.Add(time.Duration(off) * time.Hour)

		north := EquatorialToHorizontal(obs, 0, 90, tm)
		if math.Abs(north.AltitudeDeg-37) > 0.3 {
			t.Errorf("+%dh: north pole altitude = %.3f, want ~37", off, north.AltitudeDeg)
		}

		south := EquatorialToHorizontal(obs, 0, -90, tm)
		if south.AltitudeDeg >= 0 {
			t.Errorf("+%dh: south pole altitude = %.3f, want below horizon", off, south.AltitudeDeg)
		}
		if math.Abs(south.AltitudeDeg+37) > 0.3 {
			t.Errorf("+%dh: south pole altitude = %.3f, want ~-37", off, south.AltitudeDeg)
		}
	}
}

// TestEquatorialToHorizontal_Ranges sweeps a grid of targets and observers.
func TestEquatorialToHorizontal_Ranges(t *testing.T) {
	tm := time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)
	for lat := -90.0; lat <= 90; lat += 30 {
		for lon := 0.0; lon < 360; lon += 45 {
			obs := NewObserverPosition(lat, lon, 100)
			for ra := 0.0; ra < 360; ra += 40 {
				for dec := -90.0; dec <= 90; dec += 22.5 {
					h := EquatorialToHorizontal(obs, ra, dec, tm)
					if math.IsNaN(h.AltitudeDeg) || h.AltitudeDeg < -90 || h.AltitudeDeg > 90 {
						t.Fatalf("alt out of range: obs=(%v,%v) target=(%v,%v) alt=%v", lat, lon, ra, dec, h.AltitudeDeg)
					}
					if math.IsNaN(h.AzimuthDeg) || h.AzimuthDeg < 0 || h.AzimuthDeg >= 360 {
						t.Fatalf("az out of range: obs=(%v,%v) target=(%v,%v) az=%v", lat, lon, ra, dec, h.AzimuthDeg)
					}
				}
			}
		}
	}
}
