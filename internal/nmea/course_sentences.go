package nmea

import (
	"fmt"
	"strings"

	"navpilot/internal/geo"
)

// VTG reports track made good and ground speed.
type VTG struct {
	Header
	TrackTrueDeg float64
	HasTrackTrue bool
	TrackMagDeg  float64
	HasTrackMag  bool
	SpeedKt      float64
	Mode         string
}

func parseVTG(h Header, f []string) (Sentence, error) {
	if len(f) < 8 {
		return nil, fmt.Errorf("nmea: VTG needs 8 fields, got %d", len(f))
	}
	s := &VTG{Header: h}
	if v, ok := parseFloatField(f[0]); ok {
		s.TrackTrueDeg = geo.NormalizeDeg(v)
		s.HasTrackTrue = true
	}
	if v, ok := parseFloatField(f[2]); ok {
		s.TrackMagDeg = geo.NormalizeDeg(v)
		s.HasTrackMag = true
	}
	if v, ok := parseFloatField(f[4]); ok {
		s.SpeedKt = v
	}
	if len(f) > 8 {
		s.Mode = strings.TrimSpace(f[8])
	}
	return s, nil
}

func (s *VTG) Fields() []string {
	f := []string{
		formatOptFloat(s.TrackTrueDeg, s.HasTrackTrue, 1), "T",
		formatOptFloat(s.TrackMagDeg, s.HasTrackMag, 1), "M",
		formatOptFloat(s.SpeedKt, true, 1), "N",
		formatOptFloat(s.SpeedKt*1.852, true, 1), "K",
	}
	if s.Mode != "" {
		f = append(f, s.Mode)
	}
	return f
}

// HDG reports magnetic heading with deviation and variation. It is the
// preferred source for magnetic variation.
type HDG struct {
	Header
	HeadingDeg   float64 // magnetic sensor heading
	DeviationDeg float64 // positive east
	HasDeviation bool
	VariationDeg float64 // positive east
	HasVariation bool
}

func parseHDG(h Header, f []string) (Sentence, error) {
	if len(f) < 5 {
		return nil, fmt.Errorf("nmea: HDG needs 5 fields, got %d", len(f))
	}
	s := &HDG{Header: h}
	if v, ok := parseFloatField(f[0]); ok {
		s.HeadingDeg = geo.NormalizeDeg(v)
	}
	if v, ok := parseFloatField(f[1]); ok {
		s.DeviationDeg = v
		s.HasDeviation = true
		if strings.TrimSpace(f[2]) == "W" {
			s.DeviationDeg = -v
		}
	}
	if v, ok := parseFloatField(f[3]); ok {
		s.VariationDeg = v
		s.HasVariation = true
		if strings.TrimSpace(f[4]) == "W" {
			s.VariationDeg = -v
		}
	}
	return s, nil
}

func (s *HDG) Fields() []string {
	dev, devH := "", ""
	if s.HasDeviation {
		v := s.DeviationDeg
		devH = "E"
		if v < 0 {
			v = -v
			devH = "W"
		}
		dev = formatOptFloat(v, true, 1)
	}
	variation, varH := "", ""
	if s.HasVariation {
		v := s.VariationDeg
		varH = "E"
		if v < 0 {
			v = -v
			varH = "W"
		}
		variation = formatOptFloat(v, true, 1)
	}
	return []string{
		formatOptFloat(s.HeadingDeg, true, 1),
		dev, devH,
		variation, varH,
	}
}

// HDT reports true heading.
type HDT struct {
	Header
	HeadingDeg float64
}

func parseHDT(h Header, f []string) (Sentence, error) {
	if len(f) < 2 {
		return nil, fmt.Errorf("nmea: HDT needs 2 fields, got %d", len(f))
	}
	s := &HDT{Header: h}
	if v, ok := parseFloatField(f[0]); ok {
		s.HeadingDeg = geo.NormalizeDeg(v)
	}
	return s, nil
}

func (s *HDT) Fields() []string {
	return []string{formatOptFloat(s.HeadingDeg, true, 1), "T"}
}
