package nmea

import (
	"fmt"
	"strings"
	"time"
)

// Header carries what every sentence has: the talker, the sentence ID, the
// arrival timestamp, and whether the raw line passed checksum and field
// validation. It is embedded by every concrete sentence type.
type Header struct {
	Talker string
	ID     SentenceID
	At     time.Time
	// Bang marks encapsulation sentences ("!AIVDM") that render with '!'
	// instead of '$'.
	Bang bool
	// OK is false when the sentence was constructed from a line that did not
	// fully validate.
	OK bool
}

func (h Header) TalkerID() string       { return h.Talker }
func (h Header) SentenceID() SentenceID { return h.ID }
func (h Header) ReceivedAt() time.Time  { return h.At }
func (h Header) Valid() bool            { return h.OK }
func (h Header) SentenceHeader() Header { return h }

// Sentence is one decoded NMEA0183 message. Concrete types embed Header and
// add typed fields; Fields returns the comma-separated payload for encoding.
type Sentence interface {
	TalkerID() string
	SentenceID() SentenceID
	ReceivedAt() time.Time
	Valid() bool
	SentenceHeader() Header
	Fields() []string
}

// Checksum computes the NMEA XOR checksum over the payload between the
// leading '$'/'!' and the '*'.
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Render encodes a sentence back to its wire form, including the leading
// '$'/'!', the checksum, and the trailing CRLF.
func Render(s Sentence) string {
	h := s.SentenceHeader()
	prefix := "$"
	if h.Bang {
		prefix = "!"
	}
	payload := h.Talker + h.ID.String()
	if f := s.Fields(); len(f) > 0 {
		payload += "," + strings.Join(f, ",")
	}
	return fmt.Sprintf("%s%s*%02X\r\n", prefix, payload, Checksum(payload))
}

// splitFrame validates framing and checksum of a raw line and returns the
// payload between the prefix and the '*'.
func splitFrame(line string) (payload string, bang bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 9 {
		return "", false, fmt.Errorf("nmea: line too short (%d bytes)", len(line))
	}
	switch line[0] {
	case '$':
	case '!':
		bang = true
	default:
		return "", false, fmt.Errorf("nmea: missing '$' or '!'")
	}

	star := strings.LastIndexByte(line, '*')
	if star == -1 || star != len(line)-3 {
		return "", false, fmt.Errorf("nmea: missing 2-digit checksum")
	}
	payload = line[1:star]
	if strings.ContainsAny(payload, "$!*") {
		return "", false, fmt.Errorf("nmea: stray framing character in payload")
	}

	want, err := parseHexByte(line[star+1:])
	if err != nil {
		return "", false, err
	}
	if got := Checksum(payload); got != want {
		return "", false, fmt.Errorf("nmea: checksum mismatch (got %02X want %02X)", got, want)
	}
	return payload, bang, nil
}

func parseHexByte(s string) (byte, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("nmea: bad checksum %q", s)
	}
	var v byte
	for i := 0; i < 2; i++ {
		c := s[i]
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= c - '0'
		case c >= 'A' && c <= 'F':
			v |= c - 'A' + 10
		case c >= 'a' && c <= 'f':
			v |= c - 'a' + 10
		default:
			return 0, fmt.Errorf("nmea: bad checksum %q", s)
		}
	}
	return v, nil
}
