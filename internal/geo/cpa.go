package geo

import "math"

// Track is a position plus a velocity (speed in knots, course in degrees
// true), the minimum state needed for an encounter computation.
type Track struct {
	Pos       Position
	SpeedKt   float64
	CourseDeg float64
}

// CPA computes the closest point of approach between two moving tracks on a
// local flat-earth plane centered on own. It returns the CPA distance in
// meters and the time to CPA in seconds.
//
// A negative time means the tracks are already past their closest point; the
// returned distance is then the current separation. When the relative speed
// is (near) zero, time is 0 and distance is the current separation.
func CPA(own, other Track) (distM, timeSec float64) {
	// Relative position of other in meters, east/north components.
	refLat := radians(own.Pos.LatDeg)
	rx := (other.Pos.LonDeg - own.Pos.LonDeg) * metersPerDegLat * math.Cos(refLat)
	ry := (other.Pos.LatDeg - own.Pos.LatDeg) * metersPerDegLat

	vx := velEast(other) - velEast(own)
	vy := velNorth(other) - velNorth(own)

	v2 := vx*vx + vy*vy
	if v2 < 1e-9 {
		return math.Hypot(rx, ry), 0
	}

	timeSec = -(rx*vx + ry*vy) / v2
	if timeSec < 0 {
		return math.Hypot(rx, ry), timeSec
	}
	distM = math.Hypot(rx+vx*timeSec, ry+vy*timeSec)
	return distM, timeSec
}

func velEast(t Track) float64 {
	return t.SpeedKt * knotsToMS * math.Sin(radians(t.CourseDeg))
}

func velNorth(t Track) float64 {
	return t.SpeedKt * knotsToMS * math.Cos(radians(t.CourseDeg))
}

const knotsToMS = MetersPerNauticalMile / 3600
