// Package ringbuf provides a fixed-capacity circular byte buffer used to
// reassemble line-oriented sentences from a raw byte stream.
//
// Insert fails on overflow instead of overwriting unread data; that is the
// backpressure signal to the producer.
package ringbuf

import (
	"errors"
	"sync"
)

// ErrOverflow is returned when an insert would exceed the remaining capacity.
var ErrOverflow = errors.New("ringbuf: insert exceeds remaining capacity")

// ErrUnderflow is returned when a consume exceeds the buffered byte count.
var ErrUnderflow = errors.New("ringbuf: consume exceeds buffered bytes")

// Buffer is a fixed-size byte ring. All methods are safe for concurrent use
// by one producer and one consumer.
type Buffer struct {
	mu        sync.Mutex
	data      []byte
	sizeUsed  int
	nextWrite int
	nextRead  int
}

// New returns a ring buffer with the given capacity in bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Capacity returns the fixed total capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// Used returns the number of currently buffered bytes.
func (b *Buffer) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeUsed
}

// InsertBytes copies p into the ring, wrapping at capacity. It returns
// ErrOverflow (and copies nothing) if p does not fit in the free space.
func (b *Buffer) InsertBytes(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) > len(b.data)-b.sizeUsed {
		return ErrOverflow
	}
	n := copy(b.data[b.nextWrite:], p)
	if n < len(p) {
		copy(b.data, p[n:])
	}
	b.nextWrite = (b.nextWrite + len(p)) % len(b.data)
	b.sizeUsed += len(p)
	return nil
}

// GetBuffer copies up to len(out) buffered bytes into out without consuming
// them and returns the count copied. Repeated calls return the same bytes
// until ConsumeBytes advances the read cursor.
func (b *Buffer) GetBuffer(out []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(out)
	if n > b.sizeUsed {
		n = b.sizeUsed
	}
	first := copy(out[:n], b.data[b.nextRead:])
	if first < n {
		copy(out[first:n], b.data)
	}
	return n
}

// ConsumeBytes advances the read cursor by count bytes, freeing capacity.
func (b *Buffer) ConsumeBytes(count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count < 0 || count > b.sizeUsed {
		return ErrUnderflow
	}
	b.nextRead = (b.nextRead + count) % len(b.data)
	b.sizeUsed -= count
	return nil
}
