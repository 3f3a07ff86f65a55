package stream

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"navpilot/internal/ais"
	"navpilot/internal/cache"
	"navpilot/internal/nmea"
	"navpilot/internal/ringbuf"
)

// pipeline turns raw byte chunks into parsed sentences and applies them to
// the sentence cache and the AIS target store. It owns no goroutine; the
// service's read loop (or a test) feeds it.
type pipeline struct {
	ring      *ringbuf.Buffer
	scratch   []byte
	cache     *cache.SentenceCache
	assembler *ais.Assembler
	targets   *ais.TargetStore
	onLine    func(line string)

	lines       uint64
	parsed      uint64
	dropped     uint64
	aisMessages uint64
	overflows   uint64
	lastErr     string
}

func newPipeline(bufBytes int, c *cache.SentenceCache, targets *ais.TargetStore) *pipeline {
	if bufBytes <= 0 {
		bufBytes = 16 * 1024
	}
	return &pipeline{
		ring:      ringbuf.New(bufBytes),
		scratch:   make([]byte, bufBytes),
		cache:     c,
		assembler: ais.NewAssembler(0),
		targets:   targets,
	}
}

// feed buffers a chunk and processes every complete line it now holds.
// Incomplete trailing data stays buffered for the next chunk.
func (p *pipeline) feed(now time.Time, chunk []byte) {
	if err := p.ring.InsertBytes(chunk); err != nil {
		// A full ring means no newline arrived within the whole buffer.
		// Drop the buffered garbage and resynchronize on the next line.
		p.overflows++
		p.lastErr = fmt.Sprintf("input buffer overflow, %d bytes discarded", p.ring.Used())
		_ = p.ring.ConsumeBytes(p.ring.Used())
		if err := p.ring.InsertBytes(chunk); err != nil {
			// Chunk larger than the whole ring; nothing sensible to keep.
			return
		}
	}

	for {
		line, ok := p.nextLine()
		if !ok {
			return
		}
		if line == "" {
			continue
		}
		p.applyLine(now, line)
	}
}

// nextLine extracts one newline-terminated line from the ring.
func (p *pipeline) nextLine() (string, bool) {
	n := p.ring.GetBuffer(p.scratch)
	for i := 0; i < n; i++ {
		if p.scratch[i] != '\n' {
			continue
		}
		_ = p.ring.ConsumeBytes(i + 1)
		return strings.TrimRight(string(p.scratch[:i]), "\r"), true
	}
	return "", false
}

func (p *pipeline) applyLine(now time.Time, line string) {
	p.lines++

	s, err := nmea.ParseLine(line, now)
	if err != nil {
		p.dropped++
		p.lastErr = err.Error()
		return
	}
	p.parsed++
	p.cache.Add(s)
	if p.onLine != nil {
		p.onLine(line)
	}

	v, ok := s.(*nmea.VDM)
	if !ok || p.targets == nil {
		return
	}
	payload, done := p.assembler.Add(v, now)
	if !done {
		return
	}
	msg, err := ais.Decode(payload)
	if err != nil {
		// Unsupported message types are routine on a live feed.
		if !errors.Is(err, ais.ErrUnsupportedType) {
			p.lastErr = err.Error()
		}
		return
	}
	p.aisMessages++
	p.targets.Apply(now, msg)
}
