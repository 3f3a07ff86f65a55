package nmea

import (
	"fmt"
	"strings"
	"time"

	"navpilot/internal/geo"
)

// RMC is the recommended minimum position/course/speed sentence. It is the
// primary position-fix source and the only standard sentence that carries a
// full date.
type RMC struct {
	Header
	FixTime      time.Time // UTC, zero when date or time was absent
	Status       byte      // 'A' active, 'V' void
	Pos          geo.Position
	SpeedKt      float64
	TrackDeg     float64
	HasTrack     bool
	VariationDeg float64 // magnetic variation, positive east
	HasVariation bool
	Mode         string // FAA mode indicator, empty on v2.2 talkers
}

func parseRMC(h Header, f []string) (Sentence, error) {
	if len(f) < 11 {
		return nil, fmt.Errorf("nmea: RMC needs 11 fields, got %d", len(f))
	}
	s := &RMC{Header: h, Status: 'V'}
	if st := strings.TrimSpace(f[1]); st != "" {
		s.Status = st[0]
	}

	lat, latOK := parseLatLon(f[2], f[3])
	lon, lonOK := parseLatLon(f[4], f[5])
	if latOK && lonOK {
		s.Pos = geo.Position{LatDeg: lat, LonDeg: lon}
	}
	if v, ok := parseFloatField(f[6]); ok {
		s.SpeedKt = v
	}
	if v, ok := parseFloatField(f[7]); ok {
		s.TrackDeg = geo.NormalizeDeg(v)
		s.HasTrack = true
	}

	if tod, ok := parseTimeOfDay(f[0]); ok {
		if y, mo, d, ok := parseDate(f[8]); ok {
			s.FixTime = time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC).Add(tod)
		}
	}

	if v, ok := parseFloatField(f[9]); ok {
		s.VariationDeg = v
		s.HasVariation = true
		if strings.TrimSpace(f[10]) == "W" {
			s.VariationDeg = -v
		}
	}
	if len(f) > 11 {
		s.Mode = strings.TrimSpace(f[11])
	}
	return s, nil
}

func (s *RMC) Fields() []string {
	lat, latH := formatLat(s.Pos.LatDeg)
	lon, lonH := formatLon(s.Pos.LonDeg)

	variation, variationH := "", ""
	if s.HasVariation {
		v := s.VariationDeg
		variationH = "E"
		if v < 0 {
			v = -v
			variationH = "W"
		}
		variation = formatOptFloat(v, true, 1)
	}

	f := []string{
		formatTimeOfDay(s.FixTime),
		string(s.Status),
		lat, latH,
		lon, lonH,
		formatOptFloat(s.SpeedKt, true, 1),
		formatOptFloat(s.TrackDeg, s.HasTrack, 1),
		formatDate(s.FixTime),
		variation, variationH,
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// GGA is the GNSS fix data sentence; its main contribution over RMC is the
// antenna altitude and fix quality.
type GGA struct {
	Header
	TimeOfDay   time.Duration // UTC time past midnight
	Pos         geo.Position  // HeightM holds the antenna altitude
	Quality     int           // 0 = no fix
	Satellites  int
	HDOP        float64
	HasHDOP     bool
	GeoidSep    float64
	HasGeoidSep bool
}

func parseGGA(h Header, f []string) (Sentence, error) {
	if len(f) < 14 {
		return nil, fmt.Errorf("nmea: GGA needs 14 fields, got %d", len(f))
	}
	s := &GGA{Header: h}
	if tod, ok := parseTimeOfDay(f[0]); ok {
		s.TimeOfDay = tod
	}
	lat, latOK := parseLatLon(f[1], f[2])
	lon, lonOK := parseLatLon(f[3], f[4])
	if q, ok := parseIntField(f[5]); ok {
		s.Quality = q
	}
	if n, ok := parseIntField(f[6]); ok {
		s.Satellites = n
	}
	if v, ok := parseFloatField(f[7]); ok {
		s.HDOP = v
		s.HasHDOP = true
	}
	alt, altOK := parseFloatField(f[8])
	if latOK && lonOK {
		s.Pos = geo.Position{LatDeg: lat, LonDeg: lon}
		if altOK {
			s.Pos.HeightM = alt
		}
	}
	if v, ok := parseFloatField(f[10]); ok {
		s.GeoidSep = v
		s.HasGeoidSep = true
	}
	return s, nil
}

func (s *GGA) Fields() []string {
	lat, latH := formatLat(s.Pos.LatDeg)
	lon, lonH := formatLon(s.Pos.LonDeg)
	midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return []string{
		formatTimeOfDay(midnight.Add(s.TimeOfDay)),
		lat, latH,
		lon, lonH,
		fmt.Sprintf("%d", s.Quality),
		fmt.Sprintf("%02d", s.Satellites),
		formatOptFloat(s.HDOP, s.HasHDOP, 1),
		formatOptFloat(s.Pos.HeightM, true, 1), "M",
		formatOptFloat(s.GeoidSep, s.HasGeoidSep, 1), "M",
		"", "",
	}
}

// GLL is the geographic position sentence.
type GLL struct {
	Header
	Pos       geo.Position
	TimeOfDay time.Duration
	Status    byte
	Mode      string
}

func parseGLL(h Header, f []string) (Sentence, error) {
	if len(f) < 6 {
		return nil, fmt.Errorf("nmea: GLL needs 6 fields, got %d", len(f))
	}
	s := &GLL{Header: h, Status: 'V'}
	lat, latOK := parseLatLon(f[0], f[1])
	lon, lonOK := parseLatLon(f[2], f[3])
	if latOK && lonOK {
		s.Pos = geo.Position{LatDeg: lat, LonDeg: lon}
	}
	if tod, ok := parseTimeOfDay(f[4]); ok {
		s.TimeOfDay = tod
	}
	if st := strings.TrimSpace(f[5]); st != "" {
		s.Status = st[0]
	}
	if len(f) > 6 {
		s.Mode = strings.TrimSpace(f[6])
	}
	return s, nil
}

func (s *GLL) Fields() []string {
	lat, latH := formatLat(s.Pos.LatDeg)
	lon, lonH := formatLon(s.Pos.LonDeg)
	midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	f := []string{
		lat, latH,
		lon, lonH,
		formatTimeOfDay(midnight.Add(s.TimeOfDay)),
		string(s.Status),
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// ZDA is the time-and-date sentence.
type ZDA struct {
	Header
	DateTime time.Time // UTC
}

func parseZDA(h Header, f []string) (Sentence, error) {
	if len(f) < 4 {
		return nil, fmt.Errorf("nmea: ZDA needs 4 fields, got %d", len(f))
	}
	s := &ZDA{Header: h}
	tod, todOK := parseTimeOfDay(f[0])
	day, dayOK := parseIntField(f[1])
	month, monOK := parseIntField(f[2])
	year, yearOK := parseIntField(f[3])
	if todOK && dayOK && monOK && yearOK {
		s.DateTime = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Add(tod)
	}
	return s, nil
}

func (s *ZDA) Fields() []string {
	t := s.DateTime.UTC()
	return []string{
		formatTimeOfDay(t),
		fmt.Sprintf("%02d", t.Day()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%04d", t.Year()),
		"00", "00",
	}
}
