package geo

import "math"

// EarthRadiusM is the mean Earth radius used for all great-circle math.
// A fixed spherical radius keeps results reproducible; the error against the
// WGS84 ellipsoid is well under 0.5% and irrelevant for leg navigation.
const EarthRadiusM = 6371000.0

// MetersPerNauticalMile converts meters to nautical miles at presentation
// boundaries (sentence encoding); all internal math stays in meters.
const MetersPerNauticalMile = 1852.0

// DistAndDir returns the great-circle distance in meters and the initial
// bearing in degrees true [0..360) from one position to another.
// Distance from a point to itself is 0 with bearing 0.
func DistAndDir(from, to Position) (distM, bearingDeg float64) {
	lat1 := radians(from.LatDeg)
	lat2 := radians(to.LatDeg)
	dLat := radians(to.LatDeg - from.LatDeg)
	dLon := radians(to.LonDeg - from.LonDeg)

	// Haversine.
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	distM = 2 * EarthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearingDeg = NormalizeDeg(degrees(math.Atan2(y, x)))
	return distM, bearingDeg
}

// CrossTrackError returns the signed perpendicular distance in meters of the
// current position from the great-circle track legStart->legEnd, and the
// along-track distance in meters from legStart toward legEnd.
//
// Sign convention: positive means the vessel is to the RIGHT of the track
// (looking from legStart toward legEnd), negative to the left.
func CrossTrackError(legStart, legEnd, current Position) (xteM, alongM float64) {
	d13, brg13 := DistAndDir(legStart, current)
	_, brg12 := DistAndDir(legStart, legEnd)

	delta13 := d13 / EarthRadiusM
	dXT := math.Asin(math.Sin(delta13) * math.Sin(radians(brg13-brg12)))
	xteM = dXT * EarthRadiusM

	// Along-track distance from the leg start to the abeam point.
	cosDelta := math.Cos(delta13) / math.Cos(dXT)
	// Clamp against rounding just outside [-1, 1].
	cosDelta = math.Max(-1, math.Min(1, cosDelta))
	alongM = math.Acos(cosDelta) * EarthRadiusM
	if math.Abs(brg13-brg12) > 90 && math.Abs(brg13-brg12) < 270 {
		// Behind the leg start.
		alongM = -alongM
	}
	return xteM, alongM
}

// VelocityTowardsTarget projects the current velocity onto the bearing to the
// target and returns the closing speed in the same unit as speedOverGround
// (positive = approaching the target).
func VelocityTowardsTarget(target, current Position, speedOverGround, trackDeg float64) float64 {
	_, brg := DistAndDir(current, target)
	return speedOverGround * math.Cos(radians(trackDeg-brg))
}

// NormalizeDeg maps an angle in degrees into [0, 360).
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
