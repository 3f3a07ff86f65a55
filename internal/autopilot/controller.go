// Package autopilot runs the closed-loop navigation computation: it reads
// the vessel and route state from the sentence cache, recomputes the active
// leg's geometry, and emits steering sentences to a sink.
package autopilot

import (
	"log"
	"sync"
	"time"

	"navpilot/internal/cache"
	"navpilot/internal/geo"
	"navpilot/internal/nmea"
)

// Sink receives one tick's output sentences as a single unit.
type Sink interface {
	SendBatch(batch []nmea.Sentence) error
}

// Config controls the controller loop.
type Config struct {
	// Interval is the control loop period.
	Interval time.Duration
	// Talker is the talker ID used on emitted sentences.
	Talker string
	// ArrivalRadiusM is the distance at which the arrival flag is raised.
	ArrivalRadiusM float64
}

// Stats is a read-only view of loop activity.
type Stats struct {
	Running      bool
	Ticks        uint64
	SkippedTicks uint64
	Batches      uint64
	LastError    string
}

// Controller owns the periodic navigation loop. Only the loop goroutine
// mutates the leg-tracking state; Start and Stop manage the goroutine.
type Controller struct {
	cfg   Config
	cache *cache.SentenceCache
	sink  Sink

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Leg tracking, touched only by the loop (or by ComputeStatus in
	// tests). currentOrigin is the start of the active leg; it is reset on
	// a leg transition and re-derived on the next tick.
	currentOrigin     *nmea.RoutePoint
	knownNextWaypoint *nmea.RoutePoint
	loopCount         uint64

	statsMu sync.Mutex
	ticks   uint64
	skipped uint64
	batches uint64
	lastErr string
}

// New returns a stopped controller.
func New(cfg Config, c *cache.SentenceCache, sink Sink) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = 200 * time.Millisecond
	}
	if cfg.Talker == "" {
		cfg.Talker = "AP"
	}
	if cfg.ArrivalRadiusM <= 0 {
		cfg.ArrivalRadiusM = 100
	}
	return &Controller{cfg: cfg, cache: c, sink: sink}
}

// Start launches the control loop. Calling Start on a running controller is
// a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.loop(c.stopCh)
}

// Stop terminates the loop and waits for it to exit before returning.
// Calling Stop on a stopped controller is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
}

// Snapshot returns loop diagnostics.
func (c *Controller) Snapshot() Stats {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		Running:      running,
		Ticks:        c.ticks,
		SkippedTicks: c.skipped,
		Batches:      c.batches,
		LastError:    c.lastErr,
	}
}

func (c *Controller) loop(stopCh chan struct{}) {
	defer c.wg.Done()

	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-t.C:
			batch := c.ComputeStatus(now.UTC())
			if len(batch) == 0 {
				continue
			}
			if err := c.sink.SendBatch(batch); err != nil {
				c.statsMu.Lock()
				c.lastErr = err.Error()
				c.statsMu.Unlock()
				log.Printf("autopilot: send batch: %v", err)
				continue
			}
			c.statsMu.Lock()
			c.batches++
			c.lastErr = ""
			c.statsMu.Unlock()
		}
	}
}

// ComputeStatus performs one control tick: it reads the cache, recomputes
// the leg geometry, and returns the sentences to emit. A nil result means
// the tick was skipped because a precondition (leg, variation, position,
// route) is not available yet; that is the normal idle state before a route
// is activated, not an error.
func (c *Controller) ComputeStatus(now time.Time) []nmea.Sentence {
	c.statsMu.Lock()
	c.ticks++
	c.statsMu.Unlock()

	skip := func() []nmea.Sentence {
		c.statsMu.Lock()
		c.skipped++
		c.statsMu.Unlock()
		return nil
	}

	leg, ok := c.cache.LastRMB()
	if !ok || leg.NextWayPointName == "" {
		return skip()
	}
	variation, ok := c.cache.MagneticVariation()
	if !ok {
		return skip()
	}
	pos, track, sog, _, ok := c.cache.CurrentPosition()
	if !ok {
		return skip()
	}
	route := c.cache.CurrentRoute()
	if len(route) == 0 {
		return skip()
	}

	next := findPoint(route, leg.NextWayPointName)
	if next == nil || !next.Pos.Valid() {
		return skip()
	}

	// Leg transition: the target moved (route edit) or changed. Compare by
	// position, not name, so renaming-in-place does not reset the origin
	// while a genuine change does.
	if c.knownNextWaypoint == nil || !c.knownNextWaypoint.Pos.ApproxEqual(next.Pos) {
		c.currentOrigin = nil
		c.knownNextWaypoint = next
	}

	origin := findPoint(route, leg.OriginName)
	if origin == nil || !origin.Pos.Valid() {
		if c.currentOrigin == nil {
			// "Go To" a bare waypoint: synthesize the leg start at the
			// position we are at right now.
			d, brg := geo.DistAndDir(pos, next.Pos)
			c.currentOrigin = &nmea.RoutePoint{
				RouteName:  next.RouteName,
				Name:       leg.OriginName,
				Pos:        pos,
				BearingDeg: brg,
				DistanceM:  d,
			}
		}
		origin = c.currentOrigin
	} else {
		c.currentOrigin = origin
	}

	distToNext, brgToNext := geo.DistAndDir(pos, next.Pos)
	_, brgOriginToNext := geo.DistAndDir(origin.Pos, next.Pos)
	xteM, _ := geo.CrossTrackError(origin.Pos, next.Pos, pos)
	closingKt := geo.VelocityTowardsTarget(next.Pos, pos, sog, track)

	c.loopCount++
	batch := c.buildBatch(now, origin, next, route, batchInput{
		pos:              pos,
		trackDeg:         track,
		sogKt:            sog,
		variationDeg:     variation,
		distToNextM:      distToNext,
		brgToNextDeg:     brgToNext,
		brgOriginNextDeg: brgOriginToNext,
		xteM:             xteM,
		closingKt:        closingKt,
		fullRoute:        c.loopCount%2 == 0,
	})
	return batch
}

type batchInput struct {
	pos              geo.Position
	trackDeg         float64
	sogKt            float64
	variationDeg     float64
	distToNextM      float64
	brgToNextDeg     float64
	brgOriginNextDeg float64
	xteM             float64
	closingKt        float64
	fullRoute        bool
}

func (c *Controller) buildBatch(now time.Time, origin, next *nmea.RoutePoint, route []nmea.RoutePoint, in batchInput) []nmea.Sentence {
	head := func(id nmea.SentenceID) nmea.Header {
		return nmea.Header{Talker: c.cfg.Talker, ID: id, At: now, OK: true}
	}
	toMag := func(trueDeg float64) float64 {
		return geo.NormalizeDeg(trueDeg - in.variationDeg)
	}

	xteNM := in.xteM / geo.MetersPerNauticalMile
	// Positive cross-track error means right of track, so steer left.
	steer := byte('R')
	if xteNM > 0 {
		steer = 'L'
	}
	absXteNM := xteNM
	if absXteNM < 0 {
		absXteNM = -absXteNM
	}

	tod := now.Sub(now.Truncate(24 * time.Hour))

	batch := []nmea.Sentence{
		&nmea.RMB{
			Header:           head(nmea.IDRMB),
			Status:           'A',
			CrossTrackNM:     absXteNM,
			DirectionToSteer: steer,
			OriginName:       origin.Name,
			NextWayPointName: next.Name,
			NextPos:          next.Pos,
			RangeNM:          in.distToNextM / geo.MetersPerNauticalMile,
			BearingDeg:       in.brgToNextDeg,
			ClosingKt:        in.closingKt,
			Arrived:          in.distToNextM <= c.cfg.ArrivalRadiusM,
		},
		&nmea.XTE{
			Header:           head(nmea.IDXTE),
			CrossTrackNM:     absXteNM,
			DirectionToSteer: steer,
		},
		&nmea.VTG{
			Header:       head(nmea.IDVTG),
			TrackTrueDeg: in.trackDeg, HasTrackTrue: true,
			TrackMagDeg: toMag(in.trackDeg), HasTrackMag: true,
			SpeedKt: in.sogKt,
		},
		&nmea.BWC{
			Header:         head(nmea.IDBWC),
			TimeOfDay:      tod,
			WaypointPos:    next.Pos,
			BearingTrueDeg: in.brgToNextDeg,
			BearingMagDeg:  toMag(in.brgToNextDeg), HasBearingMag: true,
			DistanceNM:   in.distToNextM / geo.MetersPerNauticalMile,
			WaypointName: next.Name,
		},
		&nmea.BOD{
			Header:         head(nmea.IDBOD),
			BearingTrueDeg: in.brgOriginNextDeg,
			BearingMagDeg:  toMag(in.brgOriginNextDeg), HasBearingMag: true,
			DestName:   next.Name,
			OriginName: origin.Name,
		},
	}

	if in.fullRoute {
		batch = append(batch, routeSentences(head, route)...)
	}
	return batch
}

// routeSentences re-emits the active route as RTE plus one WPL per
// waypoint. Emitted at half rate to limit output bandwidth.
func routeSentences(head func(nmea.SentenceID) nmea.Header, route []nmea.RoutePoint) []nmea.Sentence {
	if len(route) == 0 {
		return nil
	}
	rte := &nmea.RTE{
		Header:         head(nmea.IDRTE),
		TotalSentences: 1,
		SentenceNumber: 1,
		Mode:           'c',
		RouteName:      route[0].RouteName,
	}
	out := make([]nmea.Sentence, 0, len(route)+1)
	for i := range route {
		rte.Waypoints = append(rte.Waypoints, route[i].Name)
		if route[i].Pos.Valid() {
			out = append(out, &nmea.WPL{
				Header: head(nmea.IDWPL),
				Pos:    route[i].Pos,
				Name:   route[i].Name,
			})
		}
	}
	return append([]nmea.Sentence{rte}, out...)
}

func findPoint(route []nmea.RoutePoint, name string) *nmea.RoutePoint {
	if name == "" {
		return nil
	}
	for i := range route {
		if route[i].Name == name {
			return &route[i]
		}
	}
	return nil
}
