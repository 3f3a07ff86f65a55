// Package cache keeps the most recently received sentence per type and
// derives the vessel's current navigation state from it.
package cache

import (
	"sync"
	"time"

	"navpilot/internal/geo"
	"navpilot/internal/nmea"
)

// SentenceCache is a last-write-wins map from sentence type to the newest
// instance seen. Waypoints are additionally keyed by name and route
// sentences by their sequence number, so a full route survives even though
// it arrives spread over many sentences.
//
// One writer (the stream pipeline), any number of readers (autopilot,
// diagnostics). Entries never expire; the cache lives as long as the
// session.
type SentenceCache struct {
	mu sync.RWMutex

	last      map[nmea.SentenceID]nmea.Sentence
	waypoints map[string]*nmea.WPL

	// Route assembly state: parts of the route named routeName, by
	// sentence number. A sentence for a different route resets the set.
	routeName  string
	routeTotal int
	routeParts map[int]*nmea.RTE

	applied uint64
}

// Stats is a read-only snapshot of cache activity for diagnostics.
type Stats struct {
	SentencesApplied uint64
	WaypointsKnown   int
	RouteName        string
	RoutePartsKnown  int
}

// New returns an empty cache.
func New() *SentenceCache {
	return &SentenceCache{
		last:       make(map[nmea.SentenceID]nmea.Sentence),
		waypoints:  make(map[string]*nmea.WPL),
		routeParts: make(map[int]*nmea.RTE),
	}
}

// Add applies one parsed sentence. Invalid sentences are ignored; valid ones
// update exactly one slot.
func (c *SentenceCache) Add(s nmea.Sentence) {
	if c == nil || s == nil || !s.Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied++

	switch v := s.(type) {
	case *nmea.WPL:
		c.waypoints[v.Name] = v
	case *nmea.RTE:
		if v.RouteName != c.routeName || v.TotalSentences != c.routeTotal {
			c.routeName = v.RouteName
			c.routeTotal = v.TotalSentences
			c.routeParts = make(map[int]*nmea.RTE)
		}
		c.routeParts[v.SentenceNumber] = v
	default:
		c.last[s.SentenceID()] = s
	}
}

// LastSentence returns the most recent sentence of the given type.
func (c *SentenceCache) LastSentence(id nmea.SentenceID) (nmea.Sentence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.last[id]
	return s, ok
}

// LastRMB returns the most recent navigation-leg sentence, the autopilot's
// source for the active origin/destination waypoint pair.
func (c *SentenceCache) LastRMB() (*nmea.RMB, bool) {
	s, ok := c.LastSentence(nmea.IDRMB)
	if !ok {
		return nil, false
	}
	rmb, ok := s.(*nmea.RMB)
	return rmb, ok
}

// CurrentPosition synthesizes the vessel state from the newest position fix
// combined with the newest course/speed and heading sentences. It fails when
// no position fix has been received yet.
func (c *SentenceCache) CurrentPosition() (pos geo.Position, trackDeg, sogKt, headingDeg float64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rmc, _ := c.last[nmea.IDRMC].(*nmea.RMC)
	gga, _ := c.last[nmea.IDGGA].(*nmea.GGA)
	gll, _ := c.last[nmea.IDGLL].(*nmea.GLL)

	switch {
	case rmc != nil && rmc.Status == 'A' && rmc.Pos.Valid():
		pos = rmc.Pos
		sogKt = rmc.SpeedKt
		trackDeg = rmc.TrackDeg
	case gga != nil && gga.Quality > 0 && gga.Pos.Valid():
		pos = gga.Pos
	case gll != nil && gll.Status == 'A' && gll.Pos.Valid():
		pos = gll.Pos
	default:
		return geo.Position{}, 0, 0, 0, false
	}
	if gga != nil && gga.Pos.Valid() {
		pos.HeightM = gga.Pos.HeightM
	}

	if vtg, _ := c.last[nmea.IDVTG].(*nmea.VTG); vtg != nil {
		sogKt = vtg.SpeedKt
		if vtg.HasTrackTrue {
			trackDeg = vtg.TrackTrueDeg
		}
	}

	headingDeg = trackDeg
	if hdt, _ := c.last[nmea.IDHDT].(*nmea.HDT); hdt != nil {
		headingDeg = hdt.HeadingDeg
	} else if hdg, _ := c.last[nmea.IDHDG].(*nmea.HDG); hdg != nil {
		headingDeg = hdg.HeadingDeg
		if hdg.HasVariation {
			headingDeg = geo.NormalizeDeg(hdg.HeadingDeg + hdg.VariationDeg)
		}
	}
	return pos, trackDeg, sogKt, headingDeg, true
}

// MagneticVariation returns the local magnetic variation in degrees
// (positive east), preferring the compass (HDG) over the GNSS receiver
// (RMC).
func (c *SentenceCache) MagneticVariation() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if hdg, _ := c.last[nmea.IDHDG].(*nmea.HDG); hdg != nil && hdg.HasVariation {
		return hdg.VariationDeg, true
	}
	if rmc, _ := c.last[nmea.IDRMC].(*nmea.RMC); rmc != nil && rmc.HasVariation {
		return rmc.VariationDeg, true
	}
	return 0, false
}

// CurrentRoute reassembles the active route from the cached RTE parts and
// WPL waypoints. It returns nil while no complete route sentence set has
// been received. Waypoints whose WPL has not arrived yet keep an invalid
// position; leg bearing/distance is only computed between known positions.
func (c *SentenceCache) CurrentRoute() []nmea.RoutePoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.routeTotal == 0 || len(c.routeParts) != c.routeTotal {
		return nil
	}
	var names []string
	for i := 1; i <= c.routeTotal; i++ {
		part, ok := c.routeParts[i]
		if !ok {
			return nil
		}
		names = append(names, part.Waypoints...)
	}
	if len(names) == 0 {
		return nil
	}

	points := make([]nmea.RoutePoint, 0, len(names))
	var prev *nmea.RoutePoint
	for i, name := range names {
		pt := nmea.RoutePoint{
			RouteName:  c.routeName,
			Index:      i,
			TotalCount: len(names),
			Name:       name,
		}
		if wpl, ok := c.waypoints[name]; ok {
			pt.Pos = wpl.Pos
		}
		if prev != nil && prev.Pos.Valid() && pt.Pos.Valid() {
			pt.DistanceM, pt.BearingDeg = geo.DistAndDir(prev.Pos, pt.Pos)
		}
		points = append(points, pt)
		prev = &points[len(points)-1]
	}
	return points
}

// Snapshot returns current diagnostics.
func (c *SentenceCache) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		SentencesApplied: c.applied,
		WaypointsKnown:   len(c.waypoints),
		RouteName:        c.routeName,
		RoutePartsKnown:  len(c.routeParts),
	}
}

// Age returns how old the newest instance of the given sentence type is.
func (c *SentenceCache) Age(id nmea.SentenceID, now time.Time) (time.Duration, bool) {
	s, ok := c.LastSentence(id)
	if !ok {
		return 0, false
	}
	return now.Sub(s.ReceivedAt()), true
}
