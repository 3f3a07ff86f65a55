package nmea

import "fmt"

// SentenceID is the three-character NMEA0183 message identifier that follows
// the talker ID ("RMC", "GGA", ...). It is a value type: comparison and map
// keying are structural.
type SentenceID [3]byte

// Any is the wildcard sentinel used when a query does not care about the
// concrete sentence type.
var Any = SentenceID{'*', ' ', ' '}

// Well-known sentence identifiers handled by this package.
var (
	IDRMC = SentenceID{'R', 'M', 'C'}
	IDGGA = SentenceID{'G', 'G', 'A'}
	IDGLL = SentenceID{'G', 'L', 'L'}
	IDVTG = SentenceID{'V', 'T', 'G'}
	IDHDG = SentenceID{'H', 'D', 'G'}
	IDHDT = SentenceID{'H', 'D', 'T'}
	IDXTE = SentenceID{'X', 'T', 'E'}
	IDRMB = SentenceID{'R', 'M', 'B'}
	IDBWC = SentenceID{'B', 'W', 'C'}
	IDBOD = SentenceID{'B', 'O', 'D'}
	IDRTE = SentenceID{'R', 'T', 'E'}
	IDWPL = SentenceID{'W', 'P', 'L'}
	IDZDA = SentenceID{'Z', 'D', 'A'}
	IDVDM = SentenceID{'V', 'D', 'M'}
	IDVDO = SentenceID{'V', 'D', 'O'}
)

// SentenceIDFromString builds a SentenceID from a 3-character string.
func SentenceIDFromString(s string) (SentenceID, error) {
	if len(s) != 3 {
		return SentenceID{}, fmt.Errorf("nmea: sentence id must be 3 characters, got %q", s)
	}
	return SentenceID{s[0], s[1], s[2]}, nil
}

func (id SentenceID) String() string {
	return string(id[:])
}
