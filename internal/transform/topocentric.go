package transform

import "math"

// ObserverPosition is a ground observer's geodetic location. Height above
// the ellipsoid is carried for display only: targets are at stellar
// distance, so it has no effect on altitude or azimuth.
type ObserverPosition struct {
	LatRad, LonRad float64
	AltM           float64 // meters above the WGS-84 ellipsoid
}

// Horizontal holds a direction in the observer's local horizon frame.
type Horizontal struct {
	AzimuthDeg  float64 // [0, 360), 0 = North, clockwise
	AltitudeDeg float64 // [-90, 90], 0 = horizon, 90 = zenith
}

// NewObserverPosition creates an ObserverPosition from geodetic latitude and
// longitude in degrees and a height in meters.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	return ObserverPosition{
		LatRad: latDeg * degToRad,
		LonRad: lonDeg * degToRad,
		AltM:   altM,
	}
}

// DirectionToHorizontal converts a direction given in the Earth-fixed frame
// into altitude and azimuth for the observer.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado Section 4.4.
// Targets here are at stellar distance, so the direction is used directly as
// the range vector (diurnal parallax is zero).
func DirectionToHorizontal(obs ObserverPosition, d Vec3) Horizontal {
	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	// Rotate ECEF direction to SEZ (South, East, Zenith).
	south := sinLat*cosLon*d.X + sinLat*sinLon*d.Y - cosLat*d.Z
	east := -sinLon*d.X + cosLon*d.Y
	zenith := cosLat*cosLon*d.X + cosLat*sinLon*d.Y + sinLat*d.Z

	mag := math.Sqrt(south*south + east*east + zenith*zenith)
	if mag == 0 {
		return Horizontal{}
	}

	alt := math.Asin(clampUnit(zenith / mag))

	// In SEZ, North = -South direction, so az = atan2(east, -south).
	// At zenith/nadir both components vanish and atan2 returns 0 (North).
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return Horizontal{
		AzimuthDeg:  az / degToRad,
		AltitudeDeg: alt / degToRad,
	}
}
