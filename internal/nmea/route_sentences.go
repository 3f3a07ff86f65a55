package nmea

import (
	"fmt"
	"strings"

	"navpilot/internal/geo"
)

// RoutePoint is one waypoint of an assembled route: its place in the
// sequence, its position, and the leg geometry from the previous point.
// Instances are immutable once built.
type RoutePoint struct {
	RouteName string
	// Index is the zero-based position in the route.
	Index      int
	TotalCount int
	Name       string
	Pos        geo.Position
	// BearingDeg/DistanceM describe the leg arriving at this point from its
	// predecessor; both are zero for the first point.
	BearingDeg float64
	DistanceM  float64
}

// RTE names the waypoints of a route. A long route spans several RTE
// sentences (total/number header fields); waypoint positions travel
// separately in WPL sentences.
type RTE struct {
	Header
	TotalSentences int
	// SentenceNumber starts at 1.
	SentenceNumber int
	// Mode is 'c' for a complete route, 'w' for the working route.
	Mode      byte
	RouteName string
	Waypoints []string
}

func parseRTE(h Header, f []string) (Sentence, error) {
	if len(f) < 4 {
		return nil, fmt.Errorf("nmea: RTE needs 4 fields, got %d", len(f))
	}
	s := &RTE{Header: h, Mode: 'c'}
	total, totalOK := parseIntField(f[0])
	num, numOK := parseIntField(f[1])
	if !totalOK || !numOK || total < 1 || num < 1 || num > total {
		return nil, fmt.Errorf("nmea: RTE bad sequence %q/%q", f[1], f[0])
	}
	s.TotalSentences = total
	s.SentenceNumber = num
	if m := strings.TrimSpace(f[2]); m != "" {
		s.Mode = m[0]
	}
	s.RouteName = strings.TrimSpace(f[3])
	for _, wp := range f[4:] {
		if wp = strings.TrimSpace(wp); wp != "" {
			s.Waypoints = append(s.Waypoints, wp)
		}
	}
	return s, nil
}

func (s *RTE) Fields() []string {
	f := []string{
		fmt.Sprintf("%d", s.TotalSentences),
		fmt.Sprintf("%d", s.SentenceNumber),
		string(s.Mode),
		s.RouteName,
	}
	return append(f, s.Waypoints...)
}

// WPL carries the position of one named waypoint.
type WPL struct {
	Header
	Pos  geo.Position
	Name string
}

func parseWPL(h Header, f []string) (Sentence, error) {
	if len(f) < 5 {
		return nil, fmt.Errorf("nmea: WPL needs 5 fields, got %d", len(f))
	}
	s := &WPL{Header: h}
	lat, latOK := parseLatLon(f[0], f[1])
	lon, lonOK := parseLatLon(f[2], f[3])
	if latOK && lonOK {
		s.Pos = geo.Position{LatDeg: lat, LonDeg: lon}
	}
	s.Name = strings.TrimSpace(f[4])
	if s.Name == "" {
		return nil, fmt.Errorf("nmea: WPL without a waypoint name")
	}
	return s, nil
}

func (s *WPL) Fields() []string {
	lat, latH := formatLat(s.Pos.LatDeg)
	lon, lonH := formatLon(s.Pos.LonDeg)
	return []string{lat, latH, lon, lonH, s.Name}
}
