package ais

import (
	"sync"
	"time"

	"navpilot/internal/nmea"
)

// Assembler reassembles AIS payloads that span multiple VDM fragments.
// Fragments belonging together share a sequential message ID and channel;
// an assembly that does not complete within the timeout is discarded, so a
// lost fragment cannot pin memory or block later messages reusing the same
// sequence ID.
type Assembler struct {
	mu      sync.Mutex
	timeout time.Duration
	pending map[string]*partial
}

type partial struct {
	fragments []string
	have      int
	fillBits  int
	startedAt time.Time
}

// NewAssembler returns an assembler with the given abandonment timeout.
func NewAssembler(timeout time.Duration) *Assembler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Assembler{timeout: timeout, pending: make(map[string]*partial)}
}

// Add feeds one VDM sentence in. When the sentence completes a message
// (single-fragment, or the last missing piece of a multi-fragment set), the
// de-armored payload is returned with ok=true. Otherwise the fragment is
// buffered and ok is false.
//
// A decode problem in the armored text also returns ok=false; the fragment
// set it belonged to is dropped.
func (a *Assembler) Add(v *nmea.VDM, now time.Time) (*Payload, bool) {
	if v == nil {
		return nil, false
	}
	if v.FragmentCount == 1 {
		p, err := PayloadFromArmored(v.Payload, v.FillBits)
		if err != nil {
			return nil, false
		}
		return p, true
	}

	key := v.Channel + "/" + v.SequenceID

	a.mu.Lock()
	defer a.mu.Unlock()
	a.purgeLocked(now)

	pt := a.pending[key]
	if pt == nil || len(pt.fragments) != v.FragmentCount {
		pt = &partial{fragments: make([]string, v.FragmentCount), startedAt: now}
		a.pending[key] = pt
	}
	idx := v.FragmentNumber - 1
	if pt.fragments[idx] == "" {
		pt.have++
	}
	pt.fragments[idx] = v.Payload
	if v.FragmentNumber == v.FragmentCount {
		// Only the final fragment may be padded.
		pt.fillBits = v.FillBits
	}

	if pt.have < len(pt.fragments) {
		return nil, false
	}
	delete(a.pending, key)

	armored := ""
	for _, f := range pt.fragments {
		armored += f
	}
	p, err := PayloadFromArmored(armored, pt.fillBits)
	if err != nil {
		return nil, false
	}
	return p, true
}

// PendingCount returns the number of incomplete fragment sets, for
// diagnostics.
func (a *Assembler) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Assembler) purgeLocked(now time.Time) {
	for k, pt := range a.pending {
		if now.Sub(pt.startedAt) > a.timeout {
			delete(a.pending, k)
		}
	}
}
