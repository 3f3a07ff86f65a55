package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"navpilot/internal/ais"
	"navpilot/internal/cache"
	"navpilot/internal/geo"
	"navpilot/internal/nmea"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type publication struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	published    []publication
	disconnected bool
}

func (c *fakeClient) Connect() mqtt.Token { return &fakeToken{err: c.connectErr} }

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publication{topic: topic, payload: append([]byte(nil), payload.([]byte)...)})
	return &fakeToken{}
}

func (c *fakeClient) publications() []publication {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publication(nil), c.published...)
}

func newTestPublisher(targets *ais.TargetStore, own *cache.SentenceCache, fc *fakeClient) *Publisher {
	p := New(Config{Broker: "broker:1883", TargetInterval: 5 * time.Millisecond}, targets, own)
	p.newCli = func(cfg Config) client { return fc }
	return p
}

func TestPublishesTargetSnapshots(t *testing.T) {
	now := time.Now().UTC()
	targets := ais.NewTargetStore(ais.TargetStoreConfig{})
	targets.Apply(now, &ais.PositionReport{
		MessageHeader: ais.MessageHeader{MsgType: 1, MMSI: 235009802},
		SpeedKt:       8.7,
		HasSpeed:      true,
		LatDeg:        50.9,
		LonDeg:        1.4,
		HasPosition:   true,
		CourseDeg:     87.4,
		HasCourse:     true,
	})

	fc := &fakeClient{}
	p := newTestPublisher(targets, nil, fc)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(fc.publications()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	pubs := fc.publications()
	if len(pubs) == 0 {
		t.Fatal("no target snapshot published")
	}
	if want := "navpilot/targets/235009802"; pubs[0].topic != want {
		t.Errorf("topic = %q, want %q", pubs[0].topic, want)
	}
	var r targetReport
	if err := json.Unmarshal(pubs[0].payload, &r); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if r.MMSI != 235009802 || r.SpeedKt != 8.7 {
		t.Errorf("report = %+v, want mmsi 235009802 sog 8.7", r)
	}
	if r.LatDeg == nil || *r.LatDeg != 50.9 {
		t.Errorf("report latitude = %v, want 50.9", r.LatDeg)
	}
}

func TestSendBatchPublishesSentences(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(ais.NewTargetStore(ais.TargetStoreConfig{}), nil, fc)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Close()

	now := time.Now().UTC()
	batch := []nmea.Sentence{
		&nmea.HDT{Header: nmea.Header{Talker: "AP", ID: nmea.IDHDT, At: now, OK: true}, HeadingDeg: 87.4},
	}
	if err := p.SendBatch(batch); err != nil {
		t.Fatalf("SendBatch() error: %v", err)
	}

	var got *publication
	for _, pub := range fc.publications() {
		if pub.topic == "navpilot/nmea" {
			p := pub
			got = &p
			break
		}
	}
	if got == nil {
		t.Fatal("no sentence publication")
	}
	if want := nmea.Render(batch[0]); string(got.payload) != want {
		t.Errorf("payload = %q, want %q", got.payload, want)
	}
}

func TestDisabledWithoutBroker(t *testing.T) {
	p := New(Config{}, nil, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() without broker: %v", err)
	}
	if err := p.SendBatch([]nmea.Sentence{&nmea.HDT{}}); err == nil {
		t.Error("SendBatch succeeded while disconnected")
	}
	p.Close()
}

func TestPublishLineMirrorsRawInput(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(ais.NewTargetStore(ais.TargetStoreConfig{}), nil, fc)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Close()

	line := "$GPGLL,5054.00000,N,00124.00000,E,120000.00,A,A*7B"
	p.PublishLine(line)

	var got *publication
	for _, pub := range fc.publications() {
		if pub.topic == "navpilot/raw" {
			p := pub
			got = &p
			break
		}
	}
	if got == nil {
		t.Fatal("no raw publication")
	}
	if string(got.payload) != line {
		t.Errorf("payload = %q, want %q", got.payload, line)
	}
}

func TestTargetReportsCarryCPA(t *testing.T) {
	now := time.Now().UTC()

	own := cache.New()
	own.Add(&nmea.RMC{
		Header:  nmea.Header{Talker: "GP", ID: nmea.IDRMC, At: now, OK: true},
		Status:  'A',
		FixTime: now,
		Pos:     geo.Position{LatDeg: 50.0, LonDeg: 1.0},
		SpeedKt: 10.0,
		TrackDeg: 0.0, HasTrack: true,
	})

	targets := ais.NewTargetStore(ais.TargetStoreConfig{})
	targets.Apply(now, &ais.PositionReport{
		MessageHeader: ais.MessageHeader{MsgType: 1, MMSI: 235009802},
		LatDeg:        50.2,
		LonDeg:        1.0,
		HasPosition:   true,
		HasSpeed:      true,
		HasCourse:     true,
	})

	fc := &fakeClient{}
	p := newTestPublisher(targets, own, fc)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(fc.publications()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	pubs := fc.publications()
	if len(pubs) == 0 {
		t.Fatal("no target snapshot published")
	}
	var r targetReport
	if err := json.Unmarshal(pubs[0].payload, &r); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if r.CPAM == nil || r.TCPASec == nil {
		t.Fatal("report carries no CPA figures")
	}
	// Own ship closes a stationary target 0.2 degrees due north at 10 kt.
	if *r.TCPASec <= 0 {
		t.Errorf("tcpa = %v, want positive (closing)", *r.TCPASec)
	}
	if *r.CPAM > 100 {
		t.Errorf("cpa = %v m, want ~0 for a head-on track", *r.CPAM)
	}
}

func TestCloseDisconnects(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(ais.NewTargetStore(ais.TargetStoreConfig{}), nil, fc)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	p.Close()
	if !fc.disconnected {
		t.Error("Close did not disconnect the client")
	}
}
