package nmea

import (
	"fmt"
	"strings"
)

// VDM is the AIS encapsulation sentence (!AIVDM / !AIVDO). It carries a
// fragment of a 6-bit-armored AIS payload; reassembly and bit decoding live
// in the ais package.
type VDM struct {
	Header
	FragmentCount  int
	FragmentNumber int    // starts at 1
	SequenceID     string // empty for single-fragment messages
	Channel        string // "A" or "B", may be empty
	Payload        string // armored payload, characters 0x30..0x77
	FillBits       int    // padding bits in the last payload character
}

// OwnShip reports whether the sentence describes the own vessel (VDO)
// rather than a received target (VDM).
func (s *VDM) OwnShip() bool { return s.ID == IDVDO }

func parseVDM(h Header, f []string) (Sentence, error) {
	if len(f) < 6 {
		return nil, fmt.Errorf("nmea: VDM needs 6 fields, got %d", len(f))
	}
	s := &VDM{Header: h}
	s.Bang = true

	count, countOK := parseIntField(f[0])
	num, numOK := parseIntField(f[1])
	if !countOK || !numOK || count < 1 || count > 9 || num < 1 || num > count {
		return nil, fmt.Errorf("nmea: VDM bad fragment sequence %q/%q", f[1], f[0])
	}
	s.FragmentCount = count
	s.FragmentNumber = num
	s.SequenceID = strings.TrimSpace(f[2])
	s.Channel = strings.TrimSpace(f[3])
	s.Payload = strings.TrimSpace(f[4])
	fill, fillOK := parseIntField(f[5])
	if !fillOK || fill < 0 || fill > 5 {
		return nil, fmt.Errorf("nmea: VDM bad fill bits %q", f[5])
	}
	s.FillBits = fill

	for i := 0; i < len(s.Payload); i++ {
		if c := s.Payload[i]; c < 0x30 || c > 0x77 {
			return nil, fmt.Errorf("nmea: VDM payload character %q out of range", c)
		}
	}
	return s, nil
}

func (s *VDM) Fields() []string {
	return []string{
		fmt.Sprintf("%d", s.FragmentCount),
		fmt.Sprintf("%d", s.FragmentNumber),
		s.SequenceID,
		s.Channel,
		s.Payload,
		fmt.Sprintf("%d", s.FillBits),
	}
}

// Generic preserves a sentence of a type this package has no decoder for.
// It keeps the raw fields so unknown traffic still round-trips.
type Generic struct {
	Header
	Raw []string
}

func (s *Generic) Fields() []string { return s.Raw }
