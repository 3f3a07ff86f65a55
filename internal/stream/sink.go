package stream

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"navpilot/internal/nmea"
)

// BatchWriter renders sentence batches and hands each batch to the
// underlying writer as a single Write, so the sentences of one computation
// cycle stay contiguous even with concurrent producers.
type BatchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBatchWriter(w io.Writer) *BatchWriter {
	return &BatchWriter{w: w}
}

func (b *BatchWriter) SendBatch(batch []nmea.Sentence) error {
	if len(batch) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, s := range batch {
		buf.WriteString(nmea.Render(s))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write(buf.Bytes())
	return err
}

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

// UDPSink sends each rendered batch as one datagram.
type UDPSink struct {
	dest string
	conn udpConn
}

func NewUDPSink(dest string) (*UDPSink, error) {
	return newUDPSink(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDPSink(
	dest string,
	resolve func(network, address string) (*net.UDPAddr, error),
	dial func(network string, laddr, raddr *net.UDPAddr) (udpConn, error),
) (*UDPSink, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDPSink{dest: dest, conn: conn}, nil
}

func (u *UDPSink) SendBatch(batch []nmea.Sentence) error {
	if len(batch) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, s := range batch {
		buf.WriteString(nmea.Render(s))
	}
	_, err := u.conn.Write(buf.Bytes())
	return err
}

func (u *UDPSink) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
