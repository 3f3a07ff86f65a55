// Package stream ingests NMEA0183 lines from a serial port, a TCP feed, or
// a replay file and routes the parsed sentences into the sentence cache and
// the AIS target store.
package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"navpilot/internal/ais"
	"navpilot/internal/cache"
)

// Config controls the input reader.
type Config struct {
	// Source selects the input: "serial", "tcp" or "file".
	Source string

	// Device and Baud apply to Source=="serial".
	Device string
	Baud   int

	// Addr is host:port for Source=="tcp".
	Addr string

	// Path is the replay file for Source=="file". ReplayDelay paces the
	// replay between lines; LoopFile restarts it at EOF.
	Path        string
	ReplayDelay time.Duration
	LoopFile    bool

	// BufferBytes sizes the receive ring. Zero picks a default.
	BufferBytes int

	// OnAccepted, when set, receives every line that parsed cleanly.
	OnAccepted func(line string)
}

// Stats is a read-only view of reader activity.
type Stats struct {
	Running   bool   `json:"running"`
	Connected bool   `json:"connected"`
	Source    string `json:"source"`
	Endpoint  string `json:"endpoint,omitempty"`

	Lines       uint64 `json:"lines"`
	Parsed      uint64 `json:"parsed"`
	Dropped     uint64 `json:"dropped"`
	AISMessages uint64 `json:"ais_messages"`
	Overflows   uint64 `json:"overflows"`
	LastError   string `json:"last_error,omitempty"`
}

// Service owns the read goroutine. Failures reconnect with backoff; they do
// not bring down the process.
type Service struct {
	cfg Config

	pmu  sync.Mutex
	pipe *pipeline

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Stats

	mu     sync.Mutex
	closer io.Closer
}

// New wires a reader to the given cache and target store. The target store
// may be nil to skip AIS decoding.
func New(cfg Config, c *cache.SentenceCache, targets *ais.TargetStore) *Service {
	s := &Service{
		cfg:  cfg,
		pipe: newPipeline(cfg.BufferBytes, c, targets),
	}
	s.pipe.onLine = cfg.OnAccepted
	s.last.Store(Stats{Source: s.source(), Endpoint: s.endpoint()})
	return s
}

func (s *Service) source() string {
	src := strings.ToLower(strings.TrimSpace(s.cfg.Source))
	if src == "" {
		src = "serial"
	}
	return src
}

func (s *Service) endpoint() string {
	switch s.source() {
	case "tcp":
		return strings.TrimSpace(s.cfg.Addr)
	case "file":
		return strings.TrimSpace(s.cfg.Path)
	default:
		return strings.TrimSpace(s.cfg.Device)
	}
}

// Start launches the read loop. Calling Start on a running service is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(childCtx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.publishStopped()

	log.Printf("stream: reading %s input from %s", s.source(), s.endpoint())

	backoff := 250 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rc, err := openSource(ctx, s.cfg)
		if err != nil {
			s.setError(fmt.Sprintf("open %s %s: %v", s.source(), s.endpoint(), err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = 250 * time.Millisecond

		s.mu.Lock()
		// Swap the closer so Close() can interrupt a blocked Read.
		s.closer = rc
		s.mu.Unlock()

		s.readAll(ctx, rc)
		_ = rc.Close()

		if s.source() == "file" {
			if !s.cfg.LoopFile {
				// A finite replay ends the service once consumed.
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

func (s *Service) readAll(ctx context.Context, rc io.ReadCloser) {
	s.publish(true)
	defer s.publish(false)

	var delayed io.Reader = rc
	if s.source() == "file" && s.cfg.ReplayDelay > 0 {
		delayed = &pacedReader{r: rc, delay: s.cfg.ReplayDelay}
	}

	chunk := make([]byte, 512)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := delayed.Read(chunk)
		if n > 0 {
			s.pmu.Lock()
			s.pipe.feed(time.Now().UTC(), chunk[:n])
			s.pmu.Unlock()
			s.publish(true)
		}
		if err != nil {
			if err != io.EOF {
				s.setError(fmt.Sprintf("read stopped: %v", err))
			}
			return
		}
	}
}

// Close stops the reader and waits for the goroutine to exit.
func (s *Service) Close() {
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

// Snapshot returns reader diagnostics.
func (s *Service) Snapshot() Stats {
	v := s.last.Load()
	if v == nil {
		return Stats{}
	}
	return v.(Stats)
}

func (s *Service) publish(connected bool) {
	s.pmu.Lock()
	st := Stats{
		Running:     true,
		Connected:   connected,
		Source:      s.source(),
		Endpoint:    s.endpoint(),
		Lines:       s.pipe.lines,
		Parsed:      s.pipe.parsed,
		Dropped:     s.pipe.dropped,
		AISMessages: s.pipe.aisMessages,
		Overflows:   s.pipe.overflows,
		LastError:   s.pipe.lastErr,
	}
	s.pmu.Unlock()
	s.last.Store(st)
}

func (s *Service) publishStopped() {
	st := s.Snapshot()
	st.Running = false
	st.Connected = false
	s.last.Store(st)
}

func (s *Service) setError(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	cur.Connected = false
	s.last.Store(cur)
}

// pacedReader inserts a fixed delay before each Read so file replay roughly
// approximates a live feed.
type pacedReader struct {
	r     io.Reader
	delay time.Duration
}

func (p *pacedReader) Read(b []byte) (int, error) {
	time.Sleep(p.delay)
	return p.r.Read(b)
}
