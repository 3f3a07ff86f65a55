package stream

import (
	"fmt"
	"math"
	"testing"
	"time"

	"navpilot/internal/ais"
	"navpilot/internal/cache"
	"navpilot/internal/nmea"
)

func nmeaLine(payload string) string {
	return fmt.Sprintf("$%s*%02X\r\n", payload, nmea.Checksum(payload))
}

func bangLine(payload string) string {
	return fmt.Sprintf("!%s*%02X\r\n", payload, nmea.Checksum(payload))
}

// bitWriter packs MSB-first bits and armors them into 6-bit payload text.
type bitWriter struct {
	bits []byte
}

func (w *bitWriter) writeUInt(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *bitWriter) armored() (string, int) {
	fill := 0
	for len(w.bits)%6 != 0 {
		w.bits = append(w.bits, 0)
		fill++
	}
	out := make([]byte, 0, len(w.bits)/6)
	for i := 0; i < len(w.bits); i += 6 {
		var v byte
		for j := 0; j < 6; j++ {
			v = v<<1 | w.bits[i+j]
		}
		if v < 40 {
			out = append(out, v+48)
		} else {
			out = append(out, v+56)
		}
	}
	return string(out), fill
}

// classAPayload builds a type 1 position report: MMSI 235009802 at
// 50.9N 1.4E, 8.7 kt over ground, course 87.4.
func classAPayload() string {
	var w bitWriter
	w.writeUInt(1, 6)  // message type
	w.writeUInt(0, 2)  // repeat
	w.writeUInt(235009802, 30)
	w.writeUInt(0, 4)   // nav status: under way using engine
	w.writeUInt(128, 8) // ROT not available
	w.writeUInt(87, 10) // SOG 8.7 kt
	w.writeUInt(0, 1)   // position accuracy
	w.writeUInt(uint64(int64(1.4*600000))&0xFFFFFFF, 28)
	w.writeUInt(uint64(int64(50.9*600000))&0x7FFFFFF, 27)
	w.writeUInt(874, 12) // COG 87.4
	w.writeUInt(511, 9)  // heading not available
	w.writeUInt(5, 6)    // timestamp
	w.writeUInt(0, 25)   // maneuver, spare, RAIM, radio
	armored, fill := w.armored()
	if fill != 0 {
		panic("type 1 payload must be 168 bits")
	}
	return armored
}

func TestPipelineRoutesSentences(t *testing.T) {
	c := cache.New()
	p := newPipeline(0, c, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	line := nmeaLine("GPRMC,120000.00,A,5054.00000,N,00124.00000,E,8.7,87.4,010524,1.1,W,A")
	p.feed(now, []byte(line))

	if p.lines != 1 || p.parsed != 1 || p.dropped != 0 {
		t.Fatalf("counters lines=%d parsed=%d dropped=%d, want 1/1/0", p.lines, p.parsed, p.dropped)
	}
	pos, _, sog, _, ok := c.CurrentPosition()
	if !ok {
		t.Fatal("cache has no position after RMC")
	}
	if math.Abs(pos.LatDeg-50.9) > 1e-6 || math.Abs(pos.LonDeg-1.4) > 1e-6 {
		t.Errorf("position = %.6f/%.6f, want 50.9/1.4", pos.LatDeg, pos.LonDeg)
	}
	if math.Abs(sog-8.7) > 1e-9 {
		t.Errorf("sog = %v, want 8.7", sog)
	}
}

func TestPipelineReassemblesSplitChunks(t *testing.T) {
	c := cache.New()
	p := newPipeline(0, c, nil)
	now := time.Now().UTC()

	line := nmeaLine("GPGLL,5054.00000,N,00124.00000,E,120000.00,A,A")
	half := len(line) / 2
	p.feed(now, []byte(line[:half]))
	if p.lines != 0 {
		t.Fatalf("half a line produced %d lines", p.lines)
	}
	p.feed(now, []byte(line[half:]))
	if p.lines != 1 || p.parsed != 1 {
		t.Fatalf("counters lines=%d parsed=%d, want 1/1", p.lines, p.parsed)
	}
}

func TestPipelineCountsDroppedLines(t *testing.T) {
	c := cache.New()
	p := newPipeline(0, c, nil)
	now := time.Now().UTC()

	p.feed(now, []byte("$GPRMC,garbage*00\r\n"))
	p.feed(now, []byte("not nmea at all\r\n"))

	if p.parsed != 0 {
		t.Fatalf("parsed = %d, want 0", p.parsed)
	}
	if p.dropped != 2 {
		t.Fatalf("dropped = %d, want 2", p.dropped)
	}
	if p.lastErr == "" {
		t.Error("lastErr empty after dropped lines")
	}
}

func TestPipelineOverflowResynchronizes(t *testing.T) {
	c := cache.New()
	p := newPipeline(64, c, nil)
	now := time.Now().UTC()

	// 200 bytes of newline-free noise cannot fit a 64-byte ring.
	noise := make([]byte, 50)
	for i := range noise {
		noise[i] = 'x'
	}
	for i := 0; i < 4; i++ {
		p.feed(now, noise)
	}
	if p.overflows == 0 {
		t.Fatal("no overflow recorded")
	}

	// The stream must recover once framed lines resume.
	p.feed(now, []byte("\r\n"))
	p.feed(now, []byte(nmeaLine("GPGLL,5054.00000,N,00124.00000,E,120000.00,A,A")))
	if p.parsed != 1 {
		t.Fatalf("parsed = %d after resync, want 1", p.parsed)
	}
}

func TestPipelineDecodesAISTargets(t *testing.T) {
	c := cache.New()
	targets := ais.NewTargetStore(ais.TargetStoreConfig{})
	p := newPipeline(0, c, targets)
	now := time.Now().UTC()

	p.feed(now, []byte(bangLine("AIVDM,1,1,,A,"+classAPayload()+",0")))

	if p.aisMessages != 1 {
		t.Fatalf("aisMessages = %d, want 1", p.aisMessages)
	}
	tgt, ok := targets.Get(235009802)
	if !ok {
		t.Fatal("target 235009802 missing from store")
	}
	if !tgt.HasPos {
		t.Fatal("target has no position")
	}
	if math.Abs(tgt.Pos.LatDeg-50.9) > 1e-4 || math.Abs(tgt.Pos.LonDeg-1.4) > 1e-4 {
		t.Errorf("target position = %.5f/%.5f, want 50.9/1.4", tgt.Pos.LatDeg, tgt.Pos.LonDeg)
	}
	if math.Abs(tgt.SpeedKt-8.7) > 1e-9 {
		t.Errorf("target sog = %v, want 8.7", tgt.SpeedKt)
	}
	if math.Abs(tgt.CourseDeg-87.4) > 1e-9 {
		t.Errorf("target cog = %v, want 87.4", tgt.CourseDeg)
	}
}

func TestPipelineMultiFragmentVDM(t *testing.T) {
	c := cache.New()
	targets := ais.NewTargetStore(ais.TargetStoreConfig{})
	p := newPipeline(0, c, targets)
	now := time.Now().UTC()

	payload := classAPayload()
	half := len(payload) / 2
	p.feed(now, []byte(bangLine(fmt.Sprintf("AIVDM,2,1,7,A,%s,0", payload[:half]))))
	if p.aisMessages != 0 {
		t.Fatal("message decoded from the first fragment alone")
	}
	p.feed(now, []byte(bangLine(fmt.Sprintf("AIVDM,2,2,7,A,%s,0", payload[half:]))))
	if p.aisMessages != 1 {
		t.Fatalf("aisMessages = %d after both fragments, want 1", p.aisMessages)
	}
	if _, ok := targets.Get(235009802); !ok {
		t.Fatal("target missing after reassembly")
	}
}
