package nmea

import (
	"fmt"
	"strings"
	"time"

	"navpilot/internal/geo"
)

// XTE reports cross-track error magnitude in nautical miles plus the
// direction to steer to get back on track.
type XTE struct {
	Header
	CrossTrackNM     float64
	DirectionToSteer byte // 'L' or 'R'
	Mode             string
}

func parseXTE(h Header, f []string) (Sentence, error) {
	if len(f) < 5 {
		return nil, fmt.Errorf("nmea: XTE needs 5 fields, got %d", len(f))
	}
	s := &XTE{Header: h, DirectionToSteer: 'L'}
	if v, ok := parseFloatField(f[2]); ok {
		s.CrossTrackNM = v
	}
	if d := strings.TrimSpace(f[3]); d != "" {
		s.DirectionToSteer = d[0]
	}
	if len(f) > 5 {
		s.Mode = strings.TrimSpace(f[5])
	}
	return s, nil
}

func (s *XTE) Fields() []string {
	f := []string{
		"A", "A",
		formatOptFloat(s.CrossTrackNM, true, 3),
		string(s.DirectionToSteer),
		"N",
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// RMB is the recommended minimum navigation sentence for an active leg: the
// origin/destination waypoint names, the destination position, and range,
// bearing and closing velocity to it. Incoming RMB defines the active leg for
// the autopilot; outgoing RMB is the main autopilot product.
type RMB struct {
	Header
	Status           byte    // 'A' when navigation is active
	CrossTrackNM     float64 // magnitude, nautical miles
	DirectionToSteer byte    // 'L' or 'R'
	OriginName       string
	NextWayPointName string
	NextPos          geo.Position
	RangeNM          float64 // range to destination, capped at 999.9 on the wire
	BearingDeg       float64 // true bearing to destination
	ClosingKt        float64
	Arrived          bool
	Mode             string
}

func parseRMB(h Header, f []string) (Sentence, error) {
	if len(f) < 13 {
		return nil, fmt.Errorf("nmea: RMB needs 13 fields, got %d", len(f))
	}
	s := &RMB{Header: h, Status: 'V', DirectionToSteer: 'L'}
	if st := strings.TrimSpace(f[0]); st != "" {
		s.Status = st[0]
	}
	if v, ok := parseFloatField(f[1]); ok {
		s.CrossTrackNM = v
	}
	if d := strings.TrimSpace(f[2]); d != "" {
		s.DirectionToSteer = d[0]
	}
	s.OriginName = strings.TrimSpace(f[3])
	s.NextWayPointName = strings.TrimSpace(f[4])
	lat, latOK := parseLatLon(f[5], f[6])
	lon, lonOK := parseLatLon(f[7], f[8])
	if latOK && lonOK {
		s.NextPos = geo.Position{LatDeg: lat, LonDeg: lon}
	}
	if v, ok := parseFloatField(f[9]); ok {
		s.RangeNM = v
	}
	if v, ok := parseFloatField(f[10]); ok {
		s.BearingDeg = geo.NormalizeDeg(v)
	}
	if v, ok := parseFloatField(f[11]); ok {
		s.ClosingKt = v
	}
	s.Arrived = strings.TrimSpace(f[12]) == "A"
	if len(f) > 13 {
		s.Mode = strings.TrimSpace(f[13])
	}
	return s, nil
}

func (s *RMB) Fields() []string {
	lat, latH := formatLat(s.NextPos.LatDeg)
	lon, lonH := formatLon(s.NextPos.LonDeg)
	arrived := "V"
	if s.Arrived {
		arrived = "A"
	}
	rng := s.RangeNM
	if rng > 999.9 {
		rng = 999.9
	}
	f := []string{
		string(s.Status),
		formatOptFloat(s.CrossTrackNM, true, 3),
		string(s.DirectionToSteer),
		s.OriginName,
		s.NextWayPointName,
		lat, latH,
		lon, lonH,
		formatOptFloat(rng, true, 1),
		formatOptFloat(s.BearingDeg, true, 1),
		formatOptFloat(s.ClosingKt, true, 1),
		arrived,
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// BWC reports bearing and distance to a waypoint along the great circle.
type BWC struct {
	Header
	TimeOfDay      time.Duration
	WaypointPos    geo.Position
	BearingTrueDeg float64
	BearingMagDeg  float64
	HasBearingMag  bool
	DistanceNM     float64
	WaypointName   string
	Mode           string
}

func parseBWC(h Header, f []string) (Sentence, error) {
	if len(f) < 12 {
		return nil, fmt.Errorf("nmea: BWC needs 12 fields, got %d", len(f))
	}
	s := &BWC{Header: h}
	if tod, ok := parseTimeOfDay(f[0]); ok {
		s.TimeOfDay = tod
	}
	lat, latOK := parseLatLon(f[1], f[2])
	lon, lonOK := parseLatLon(f[3], f[4])
	if latOK && lonOK {
		s.WaypointPos = geo.Position{LatDeg: lat, LonDeg: lon}
	}
	if v, ok := parseFloatField(f[5]); ok {
		s.BearingTrueDeg = geo.NormalizeDeg(v)
	}
	if v, ok := parseFloatField(f[7]); ok {
		s.BearingMagDeg = geo.NormalizeDeg(v)
		s.HasBearingMag = true
	}
	if v, ok := parseFloatField(f[9]); ok {
		s.DistanceNM = v
	}
	s.WaypointName = strings.TrimSpace(f[11])
	if len(f) > 12 {
		s.Mode = strings.TrimSpace(f[12])
	}
	return s, nil
}

func (s *BWC) Fields() []string {
	lat, latH := formatLat(s.WaypointPos.LatDeg)
	lon, lonH := formatLon(s.WaypointPos.LonDeg)
	midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	f := []string{
		formatTimeOfDay(midnight.Add(s.TimeOfDay)),
		lat, latH,
		lon, lonH,
		formatOptFloat(s.BearingTrueDeg, true, 1), "T",
		formatOptFloat(s.BearingMagDeg, s.HasBearingMag, 1), "M",
		formatOptFloat(s.DistanceNM, true, 1), "N",
		s.WaypointName,
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// BOD reports the bearing from the origin waypoint to the destination
// waypoint of the active leg.
type BOD struct {
	Header
	BearingTrueDeg float64
	BearingMagDeg  float64
	HasBearingMag  bool
	DestName       string
	OriginName     string
}

func parseBOD(h Header, f []string) (Sentence, error) {
	if len(f) < 6 {
		return nil, fmt.Errorf("nmea: BOD needs 6 fields, got %d", len(f))
	}
	s := &BOD{Header: h}
	if v, ok := parseFloatField(f[0]); ok {
		s.BearingTrueDeg = geo.NormalizeDeg(v)
	}
	if v, ok := parseFloatField(f[2]); ok {
		s.BearingMagDeg = geo.NormalizeDeg(v)
		s.HasBearingMag = true
	}
	s.DestName = strings.TrimSpace(f[4])
	s.OriginName = strings.TrimSpace(f[5])
	return s, nil
}

func (s *BOD) Fields() []string {
	return []string{
		formatOptFloat(s.BearingTrueDeg, true, 1), "T",
		formatOptFloat(s.BearingMagDeg, s.HasBearingMag, 1), "M",
		s.DestName,
		s.OriginName,
	}
}
