// Package feed publishes the navigation output and the decoded AIS picture
// to an MQTT broker for downstream consumers (chart plotters, dashboards).
package feed

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"navpilot/internal/ais"
	"navpilot/internal/cache"
	"navpilot/internal/geo"
	"navpilot/internal/nmea"
)

// Config controls the MQTT publisher.
type Config struct {
	// Broker is host:port of the MQTT broker. Empty disables the feed.
	Broker string
	// TLS enables an encrypted connection to the broker.
	TLS bool
	// Auth is "user:pass" when the broker requires credentials.
	Auth string
	// TopicPrefix is prepended to all published topics.
	TopicPrefix string
	// ClientID identifies this publisher to the broker.
	ClientID string
	// TargetInterval paces the periodic AIS target snapshots.
	TargetInterval time.Duration
}

// client is the slice of mqtt.Client this package uses; tests substitute a
// fake.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher mirrors sentences and AIS targets onto MQTT topics:
//
//	<prefix>/raw             accepted input lines
//	<prefix>/nmea            emitted sentences, one batch per message
//	<prefix>/targets/<mmsi>  JSON per-vessel state
type Publisher struct {
	cfg     Config
	targets *ais.TargetStore
	own     *cache.SentenceCache

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	conn   client
	newCli func(cfg Config) client
}

// New wires a publisher. own may be nil; when present the target reports
// carry closest-point-of-approach figures relative to own ship.
func New(cfg Config, targets *ais.TargetStore, own *cache.SentenceCache) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "navpilot"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "navpilot"
	}
	if cfg.TargetInterval <= 0 {
		cfg.TargetInterval = 10 * time.Second
	}
	return &Publisher{cfg: cfg, targets: targets, own: own, newCli: newPahoClient}
}

func newPahoClient(cfg Config) client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + cfg.Broker)
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Auth != "" {
		parts := strings.SplitN(cfg.Auth, ":", 2)
		if len(parts) == 2 {
			opts.SetUsername(parts[0])
			opts.SetPassword(parts[1])
		} else {
			log.Printf("feed: invalid MQTT auth format, expected user:pass")
		}
	}
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	return mqtt.NewClient(opts)
}

// Start connects to the broker and begins the periodic target snapshots.
// Calling Start on a running publisher is a no-op.
func (p *Publisher) Start(ctx context.Context) error {
	if p.cfg.Broker == "" {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	conn := p.newCli(p.cfg)
	token := conn.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, token.Error())
	}
	log.Printf("feed: connected to MQTT broker %s", p.cfg.Broker)
	p.conn = conn

	childCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(childCtx)
	return nil
}

func (p *Publisher) loop(ctx context.Context) {
	defer p.wg.Done()

	t := time.NewTicker(p.cfg.TargetInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			p.publishTargets(now.UTC())
		}
	}
}

// targetReport is the JSON shape published per vessel.
type targetReport struct {
	MMSI      uint32   `json:"mmsi"`
	Name      string   `json:"name,omitempty"`
	CallSign  string   `json:"callsign,omitempty"`
	LatDeg    *float64 `json:"lat_deg,omitempty"`
	LonDeg    *float64 `json:"lon_deg,omitempty"`
	SpeedKt   float64  `json:"speed_kt"`
	CourseDeg float64  `json:"course_deg"`
	ClassB    bool     `json:"class_b"`
	LastSeen  string   `json:"last_seen"`
	CPAM      *float64 `json:"cpa_m,omitempty"`
	TCPASec   *float64 `json:"tcpa_sec,omitempty"`
}

func (p *Publisher) publishTargets(now time.Time) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil || p.targets == nil {
		return
	}

	var ownTrack geo.Track
	ownOK := false
	if p.own != nil {
		if pos, track, sog, _, ok := p.own.CurrentPosition(); ok {
			ownTrack = geo.Track{Pos: pos, SpeedKt: sog, CourseDeg: track}
			ownOK = true
		}
	}

	for _, tgt := range p.targets.Snapshot(now) {
		r := targetReport{
			MMSI:      tgt.MMSI,
			Name:      tgt.Name,
			CallSign:  tgt.CallSign,
			SpeedKt:   tgt.SpeedKt,
			CourseDeg: tgt.CourseDeg,
			ClassB:    tgt.ClassB,
			LastSeen:  tgt.LastSeenAt.UTC().Format(time.RFC3339),
		}
		if tgt.HasPos {
			lat, lon := tgt.Pos.LatDeg, tgt.Pos.LonDeg
			r.LatDeg, r.LonDeg = &lat, &lon
			if ownOK {
				cpaM, tcpaSec := geo.CPA(ownTrack, geo.Track{
					Pos:       tgt.Pos,
					SpeedKt:   tgt.SpeedKt,
					CourseDeg: tgt.CourseDeg,
				})
				r.CPAM, r.TCPASec = &cpaM, &tcpaSec
			}
		}
		buf, err := json.Marshal(r)
		if err != nil {
			continue
		}
		topic := fmt.Sprintf("%s/targets/%d", p.cfg.TopicPrefix, tgt.MMSI)
		token := conn.Publish(topic, 0, false, buf)
		token.Wait()
	}
}

// SendBatch publishes one computation cycle's sentences as a single MQTT
// message, so the publisher can stand in as an autopilot sink.
func (p *Publisher) SendBatch(batch []nmea.Sentence) error {
	if len(batch) == 0 {
		return nil
	}
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("feed: not connected")
	}

	var buf bytes.Buffer
	for _, s := range batch {
		buf.WriteString(nmea.Render(s))
	}
	token := conn.Publish(p.cfg.TopicPrefix+"/nmea", 0, false, buf.Bytes())
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// PublishLine mirrors one accepted input line. A disconnected publisher
// drops the line silently; the feed is an optional consumer.
func (p *Publisher) PublishLine(line string) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Publish(p.cfg.TopicPrefix+"/raw", 0, false, []byte(line))
}

// Close stops the snapshot loop and disconnects from the broker.
func (p *Publisher) Close() {
	p.mu.Lock()
	cancel := p.cancel
	conn := p.conn
	p.cancel = nil
	p.conn = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	if conn != nil {
		conn.Disconnect(250)
	}
}
