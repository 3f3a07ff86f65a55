package geo

import (
	"math"
	"testing"
)

func TestDistAndDirSamePoint(t *testing.T) {
	p := Position{LatDeg: 47.5, LonDeg: -122.3}
	d, brg := DistAndDir(p, p)
	if d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
	if brg != 0 {
		t.Fatalf("expected zero bearing, got %v", brg)
	}
}

func TestDistAndDirEquatorDegree(t *testing.T) {
	// One degree of longitude on the equator is R*pi/180.
	from := Position{LatDeg: 0, LonDeg: 0}
	to := Position{LatDeg: 0, LonDeg: 1}
	d, brg := DistAndDir(from, to)

	want := EarthRadiusM * math.Pi / 180
	if math.Abs(d-want) > 1.0 {
		t.Fatalf("distance=%v want=%v", d, want)
	}
	if math.Abs(brg-90) > 0.01 {
		t.Fatalf("bearing=%v want=90", brg)
	}
}

func TestDistAndDirReciprocalBearing(t *testing.T) {
	a := Position{LatDeg: 54.0, LonDeg: 10.0}
	b := Position{LatDeg: 54.5, LonDeg: 10.6}

	_, fwd := DistAndDir(a, b)
	_, back := DistAndDir(b, a)

	diff := math.Abs(NormalizeDeg(back-fwd) - 180)
	// Great-circle convergence keeps this from being exactly 180.
	if diff > 1.0 {
		t.Fatalf("fwd=%v back=%v diff from 180=%v", fwd, back, diff)
	}
}

func TestCrossTrackErrorOnTrack(t *testing.T) {
	start := Position{LatDeg: 0, LonDeg: 0}
	end := Position{LatDeg: 10, LonDeg: 0}
	mid := Position{LatDeg: 5, LonDeg: 0}

	xte, along := CrossTrackError(start, end, mid)
	if math.Abs(xte) > 0.5 {
		t.Fatalf("expected ~0 xte on track, got %v", xte)
	}
	want := 5 * EarthRadiusM * math.Pi / 180
	if math.Abs(along-want) > 1.0 {
		t.Fatalf("along=%v want=%v", along, want)
	}
}

func TestCrossTrackErrorSignPositiveRight(t *testing.T) {
	// Leg runs due north; a point east of the leg is right of track.
	start := Position{LatDeg: 0, LonDeg: 0}
	end := Position{LatDeg: 10, LonDeg: 0}
	right := Position{LatDeg: 5, LonDeg: 0.1}
	left := Position{LatDeg: 5, LonDeg: -0.1}

	xte, _ := CrossTrackError(start, end, right)
	if xte <= 0 {
		t.Fatalf("expected positive xte right of track, got %v", xte)
	}
	xte, _ = CrossTrackError(start, end, left)
	if xte >= 0 {
		t.Fatalf("expected negative xte left of track, got %v", xte)
	}
}

func TestCrossTrackErrorBehindStart(t *testing.T) {
	start := Position{LatDeg: 5, LonDeg: 0}
	end := Position{LatDeg: 10, LonDeg: 0}
	behind := Position{LatDeg: 4, LonDeg: 0}

	_, along := CrossTrackError(start, end, behind)
	if along >= 0 {
		t.Fatalf("expected negative along-track distance behind start, got %v", along)
	}
}

func TestVelocityTowardsTarget(t *testing.T) {
	cur := Position{LatDeg: 0, LonDeg: 0}
	target := Position{LatDeg: 1, LonDeg: 0} // due north

	if v := VelocityTowardsTarget(target, cur, 10, 0); math.Abs(v-10) > 0.01 {
		t.Fatalf("head-on closing speed=%v want 10", v)
	}
	if v := VelocityTowardsTarget(target, cur, 10, 90); math.Abs(v) > 0.2 {
		t.Fatalf("abeam closing speed=%v want ~0", v)
	}
	if v := VelocityTowardsTarget(target, cur, 10, 180); math.Abs(v+10) > 0.01 {
		t.Fatalf("opening speed=%v want -10", v)
	}
}

func TestCPAHeadOn(t *testing.T) {
	own := Track{Pos: Position{LatDeg: 0, LonDeg: 0}}
	other := Track{
		Pos:       Position{LatDeg: 0, LonDeg: 1.0 / 60.0}, // 1 nm east
		SpeedKt:   10,
		CourseDeg: 270,
	}

	dist, tcpa := CPA(own, other)
	if dist > 20 {
		t.Fatalf("head-on cpa distance=%v want ~0", dist)
	}
	// 1 nm at 10 kt is 6 minutes.
	if math.Abs(tcpa-360) > 5 {
		t.Fatalf("tcpa=%v want ~360s", tcpa)
	}
}

func TestCPADiverging(t *testing.T) {
	own := Track{Pos: Position{LatDeg: 0, LonDeg: 0}}
	other := Track{
		Pos:       Position{LatDeg: 0, LonDeg: 1.0 / 60.0},
		SpeedKt:   10,
		CourseDeg: 90, // sailing away
	}

	_, tcpa := CPA(own, other)
	if tcpa >= 0 {
		t.Fatalf("expected negative tcpa for diverging tracks, got %v", tcpa)
	}
}

func TestPositionValid(t *testing.T) {
	if (Position{}).Valid() {
		t.Fatalf("zero position should be invalid")
	}
	if !(Position{LatDeg: 0.001}).Valid() {
		t.Fatalf("non-zero position should be valid")
	}
}

func TestPositionApproxEqual(t *testing.T) {
	a := Position{LatDeg: 54.123456, LonDeg: 10.654321}
	b := a
	b.LatDeg += 1e-8 // ~1 mm
	if !a.ApproxEqual(b) {
		t.Fatalf("millimeter offset should compare equal")
	}
	b.LatDeg += 1e-4 // ~11 m
	if a.ApproxEqual(b) {
		t.Fatalf("11 m offset should not compare equal")
	}
}
