package geo

import (
	"fmt"
	"math"
)

// Position is a WGS84 latitude/longitude pair with an ellipsoidal height.
// The zero value (0/0/0) is treated as "no position" since it is not a
// plausible fix for any real receiver.
type Position struct {
	LatDeg  float64
	LonDeg  float64
	HeightM float64
}

// Valid reports whether the position carries a real fix.
func (p Position) Valid() bool {
	return p.LatDeg != 0 || p.LonDeg != 0 || p.HeightM != 0
}

// ApproxEqual reports whether two positions are within a few centimeters of
// each other. Used to detect "same waypoint" across route edits, where the
// name may be reused but the point moved.
func (p Position) ApproxEqual(q Position) bool {
	const tolM = 0.03

	dLatM := (p.LatDeg - q.LatDeg) * metersPerDegLat
	dLonM := (p.LonDeg - q.LonDeg) * metersPerDegLat * math.Cos(radians((p.LatDeg+q.LatDeg)/2))
	if math.Abs(dLatM) > tolM || math.Abs(dLonM) > tolM {
		return false
	}
	return math.Abs(p.HeightM-q.HeightM) <= tolM
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f°/%.6f°/%.1fm", p.LatDeg, p.LonDeg, p.HeightM)
}

const metersPerDegLat = EarthRadiusM * math.Pi / 180

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
