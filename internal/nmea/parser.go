package nmea

import (
	"fmt"
	"strings"
	"time"
)

// decodeFunc builds a typed sentence from the comma-split fields following
// the talker+ID token.
type decodeFunc func(Header, []string) (Sentence, error)

// decoders is the dispatch table from sentence ID to its decoder. It is
// initialized once and never mutated afterwards.
var decoders = map[SentenceID]decodeFunc{
	IDRMC: parseRMC,
	IDGGA: parseGGA,
	IDGLL: parseGLL,
	IDVTG: parseVTG,
	IDHDG: parseHDG,
	IDHDT: parseHDT,
	IDXTE: parseXTE,
	IDRMB: parseRMB,
	IDBWC: parseBWC,
	IDBOD: parseBOD,
	IDRTE: parseRTE,
	IDWPL: parseWPL,
	IDZDA: parseZDA,
	IDVDM: parseVDM,
	IDVDO: parseVDM,
}

// ParseLine decodes one raw NMEA0183 line into a typed sentence.
//
// A framing, checksum, or field-format problem returns a nil sentence and an
// error; the caller drops the line and moves on. Sentence types without a
// dedicated decoder come back as *Generic so they still round-trip.
func ParseLine(line string, at time.Time) (Sentence, error) {
	payload, bang, err := splitFrame(line)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(payload, ",")
	head := parts[0]
	if len(head) != 5 {
		return nil, fmt.Errorf("nmea: bad talker/type token %q", head)
	}
	id := SentenceID{head[2], head[3], head[4]}
	h := Header{
		Talker: head[:2],
		ID:     id,
		At:     at,
		Bang:   bang,
		OK:     true,
	}

	dec, known := decoders[id]
	if !known {
		return &Generic{Header: h, Raw: parts[1:]}, nil
	}
	s, err := dec(h, parts[1:])
	if err != nil {
		return nil, err
	}
	return s, nil
}
