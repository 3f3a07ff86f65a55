package ais

import (
	"sort"
	"sync"
	"time"

	"navpilot/internal/geo"
)

// TargetStoreConfig bounds the target store.
type TargetStoreConfig struct {
	// MaxTargets limits memory use. When exceeded, oldest targets are evicted.
	MaxTargets int
	// TTL controls how long a target is kept without updates.
	TTL time.Duration
}

// Target is the merged view of one vessel built from its position reports
// and static data messages.
type Target struct {
	MMSI       uint32
	Name       string
	CallSign   string
	Pos        geo.Position
	HasPos     bool
	SpeedKt    float64
	CourseDeg  float64
	NavStatus  uint8
	ClassB     bool
	LastSeenAt time.Time
}

// TargetStore keeps the most recent state per MMSI. Position reports update
// kinematics; type 5/24 static data enriches the same entry with name and
// call sign. Single writer (the decode pipeline), any number of readers.
type TargetStore struct {
	mu sync.RWMutex

	cfg     TargetStoreConfig
	targets map[uint32]Target
}

// NewTargetStore returns a store with config defaults applied.
func NewTargetStore(cfg TargetStoreConfig) *TargetStore {
	if cfg.MaxTargets <= 0 {
		cfg.MaxTargets = 500
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &TargetStore{cfg: cfg, targets: make(map[uint32]Target)}
}

// Apply merges one decoded message into the store. Messages that carry no
// per-vessel state (binary broadcasts, safety text) are ignored.
func (s *TargetStore) Apply(nowUTC time.Time, m Message) {
	if s == nil || m == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.targets[m.SourceMMSI()]
	t.MMSI = m.SourceMMSI()

	switch msg := m.(type) {
	case *PositionReport:
		if msg.HasPosition {
			t.Pos = geo.Position{LatDeg: msg.LatDeg, LonDeg: msg.LonDeg}
			t.HasPos = true
		}
		if msg.HasSpeed {
			t.SpeedKt = msg.SpeedKt
		}
		if msg.HasCourse {
			t.CourseDeg = msg.CourseDeg
		}
		t.NavStatus = msg.NavStatus
		t.ClassB = false
	case *ClassBPositionReport:
		if msg.HasPosition {
			t.Pos = geo.Position{LatDeg: msg.LatDeg, LonDeg: msg.LonDeg}
			t.HasPos = true
		}
		if msg.HasSpeed {
			t.SpeedKt = msg.SpeedKt
		}
		if msg.HasCourse {
			t.CourseDeg = msg.CourseDeg
		}
		t.ClassB = true
	case *StaticAndVoyageData:
		t.Name = msg.Name
		t.CallSign = msg.CallSign
	case *StaticDataReport:
		if msg.PartNumber == 0 {
			t.Name = msg.Name
		} else {
			t.CallSign = msg.CallSign
		}
	default:
		return
	}

	t.LastSeenAt = nowUTC.UTC()
	s.targets[t.MMSI] = t

	// Evict oldest until within limit.
	for len(s.targets) > s.cfg.MaxTargets {
		var oldestMMSI uint32
		var oldestAt time.Time
		first := true
		for k, v := range s.targets {
			if first || v.LastSeenAt.Before(oldestAt) {
				oldestMMSI = k
				oldestAt = v.LastSeenAt
				first = false
			}
		}
		delete(s.targets, oldestMMSI)
	}
}

// Get returns the current state for one MMSI.
func (s *TargetStore) Get(mmsi uint32) (Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[mmsi]
	return t, ok
}

// Snapshot purges stale targets and returns the remainder sorted by MMSI.
func (s *TargetStore) Snapshot(nowUTC time.Time) []Target {
	if s == nil {
		return nil
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}

	s.mu.Lock()
	cutoff := nowUTC.UTC().Add(-s.cfg.TTL)
	for k, v := range s.targets {
		if v.LastSeenAt.Before(cutoff) {
			delete(s.targets, k)
		}
	}
	out := make([]Target, 0, len(s.targets))
	for _, v := range s.targets {
		out = append(out, v)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MMSI < out[j].MMSI })
	return out
}
