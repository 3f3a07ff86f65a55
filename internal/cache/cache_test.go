package cache

import (
	"fmt"
	"math"
	"testing"
	"time"

	"navpilot/internal/nmea"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

func addLine(t *testing.T, c *SentenceCache, payload string) {
	t.Helper()
	s, err := nmea.ParseLine(nmeaLine(payload), time.Now())
	if err != nil {
		t.Fatalf("parse %q: %v", payload, err)
	}
	c.Add(s)
}

func TestLastSentenceMostRecentWins(t *testing.T) {
	c := New()
	addLine(t, c, "GPRMC,123519,A,4807.038,N,01131.000,E,10.0,84.4,230394,3.1,W")
	addLine(t, c, "GPRMC,123520,A,4807.038,N,01131.000,E,20.0,84.4,230394,3.1,W")

	s, ok := c.LastSentence(nmea.IDRMC)
	if !ok {
		t.Fatalf("expected cached RMC")
	}
	if rmc := s.(*nmea.RMC); rmc.SpeedKt != 20.0 {
		t.Fatalf("expected latest sentence, sog=%v", rmc.SpeedKt)
	}
}

func TestLastSentenceMissing(t *testing.T) {
	c := New()
	if _, ok := c.LastSentence(nmea.IDGGA); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestCurrentPositionRequiresFix(t *testing.T) {
	c := New()
	if _, _, _, _, ok := c.CurrentPosition(); ok {
		t.Fatalf("expected failure before any fix")
	}
	// A void RMC must not count as a fix.
	addLine(t, c, "GPRMC,123519,V,,,,,,,230394,,")
	if _, _, _, _, ok := c.CurrentPosition(); ok {
		t.Fatalf("void RMC should not provide a fix")
	}
}

func TestCurrentPositionCombinesSentences(t *testing.T) {
	c := New()
	addLine(t, c, "GPRMC,123519,A,4807.038,N,01131.000,E,10.0,84.4,230394,3.1,W")
	addLine(t, c, "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	addLine(t, c, "GPVTG,90.0,T,93.1,M,12.5,N,23.2,K")
	addLine(t, c, "HEHDT,271.0,T")

	pos, track, sog, heading, ok := c.CurrentPosition()
	if !ok {
		t.Fatalf("expected position")
	}
	if math.Abs(pos.LatDeg-48.1173) > 1e-6 {
		t.Fatalf("lat=%v", pos.LatDeg)
	}
	if pos.HeightM != 545.4 {
		t.Fatalf("height=%v, want GGA altitude", pos.HeightM)
	}
	// VTG is newer than RMC for course/speed.
	if track != 90.0 || sog != 12.5 {
		t.Fatalf("track=%v sog=%v", track, sog)
	}
	if heading != 271.0 {
		t.Fatalf("heading=%v", heading)
	}
}

func TestMagneticVariationPrefersCompass(t *testing.T) {
	c := New()
	if _, ok := c.MagneticVariation(); ok {
		t.Fatalf("expected no variation on empty cache")
	}
	addLine(t, c, "GPRMC,123519,A,4807.038,N,01131.000,E,10.0,84.4,230394,3.1,W")
	v, ok := c.MagneticVariation()
	if !ok || math.Abs(v+3.1) > 1e-9 {
		t.Fatalf("variation=%v ok=%v", v, ok)
	}
	addLine(t, c, "HCHDG,98.3,0.0,E,12.6,E")
	v, ok = c.MagneticVariation()
	if !ok || math.Abs(v-12.6) > 1e-9 {
		t.Fatalf("variation=%v ok=%v, want HDG to win", v, ok)
	}
}

func TestCurrentRouteAssembly(t *testing.T) {
	c := New()
	// Route spread over two RTE sentences plus waypoint positions.
	addLine(t, c, "GPRTE,2,1,c,TRIP,ALPHA,BRAVO")
	if c.CurrentRoute() != nil {
		t.Fatalf("route must not assemble before all parts arrive")
	}
	addLine(t, c, "GPRTE,2,2,c,TRIP,CHARLIE")
	addLine(t, c, "GPWPL,5400.000,N,01000.000,E,ALPHA")
	addLine(t, c, "GPWPL,5430.000,N,01000.000,E,BRAVO")
	addLine(t, c, "GPWPL,5500.000,N,01000.000,E,CHARLIE")

	route := c.CurrentRoute()
	if len(route) != 3 {
		t.Fatalf("route len=%d", len(route))
	}
	for i, name := range []string{"ALPHA", "BRAVO", "CHARLIE"} {
		if route[i].Name != name || route[i].Index != i || route[i].TotalCount != 3 {
			t.Fatalf("point %d: %+v", i, route[i])
		}
		if route[i].RouteName != "TRIP" {
			t.Fatalf("route name=%q", route[i].RouteName)
		}
	}
	// BRAVO is 30 minutes of latitude due north of ALPHA.
	if math.Abs(route[1].BearingDeg-0) > 0.1 {
		t.Fatalf("bearing=%v", route[1].BearingDeg)
	}
	if route[1].DistanceM < 55000 || route[1].DistanceM > 56000 {
		t.Fatalf("distance=%v", route[1].DistanceM)
	}
	if route[0].DistanceM != 0 {
		t.Fatalf("first point must have no inbound leg")
	}
}

func TestNewRouteReplacesOld(t *testing.T) {
	c := New()
	addLine(t, c, "GPRTE,1,1,c,OLD,ALPHA")
	addLine(t, c, "GPWPL,5400.000,N,01000.000,E,ALPHA")
	if len(c.CurrentRoute()) != 1 {
		t.Fatalf("expected old route")
	}

	addLine(t, c, "GPRTE,2,1,c,NEW,BRAVO")
	if c.CurrentRoute() != nil {
		t.Fatalf("incomplete new route must replace the old one")
	}
}

func TestInvalidSentencesIgnored(t *testing.T) {
	c := New()
	c.Add(nil)
	c.Add(&nmea.RMC{Header: nmea.Header{ID: nmea.IDRMC}}) // OK=false
	if got := c.Snapshot().SentencesApplied; got != 0 {
		t.Fatalf("applied=%d, want 0", got)
	}
}

func TestAge(t *testing.T) {
	c := New()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := nmea.ParseLine(nmeaLine("HEHDT,90.0,T"), at)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c.Add(s)

	age, ok := c.Age(nmea.IDHDT, at.Add(3*time.Second))
	if !ok || age != 3*time.Second {
		t.Fatalf("age=%v ok=%v", age, ok)
	}
}
