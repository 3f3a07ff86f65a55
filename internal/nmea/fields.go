package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field codecs for the fixed formats NMEA0183 uses inside comma-separated
// payloads: ddmm.mmmm coordinates with hemisphere letters, hhmmss.ss times,
// ddmmyy dates, and bare decimals.

func parseFloatField(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntField(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLatLon parses a coordinate in ddmm.mmmm (lat) or dddmm.mmmm (lon)
// form with its hemisphere letter into signed decimal degrees.
func parseLatLon(v, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.TrimSpace(strings.ToUpper(hemi))
	if v == "" || (hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W") {
		return 0, false
	}

	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}

// formatLat renders decimal degrees as ddmm.mmmmm plus hemisphere field.
func formatLat(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
		deg = -deg
	}
	d := math.Floor(deg)
	return fmt.Sprintf("%02.0f%08.5f", d, (deg-d)*60), hemi
}

// formatLon renders decimal degrees as dddmm.mmmmm plus hemisphere field.
func formatLon(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
		deg = -deg
	}
	d := math.Floor(deg)
	return fmt.Sprintf("%03.0f%08.5f", d, (deg-d)*60), hemi
}

// parseTimeOfDay parses hhmmss or hhmmss.sss into a duration past midnight.
func parseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, false
	}
	h, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	sec, err3 := strconv.ParseFloat(s[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil || h > 23 || m > 59 || sec >= 61 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)), true
}

func formatTimeOfDay(t time.Time) string {
	return t.UTC().Format("150405.00")
}

// parseDate parses ddmmyy. Years below 70 are mapped into 20xx, matching
// common receiver behavior.
func parseDate(s string) (year, month, day int, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	d, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	y, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil || d < 1 || d > 31 || m < 1 || m > 12 {
		return 0, 0, 0, false
	}
	if y < 70 {
		y += 2000
	} else {
		y += 1900
	}
	return y, m, d, true
}

func formatDate(t time.Time) string {
	return t.UTC().Format("020106")
}

// formatOptFloat renders a float with the given precision, or an empty field
// when the value is not known.
func formatOptFloat(v float64, has bool, prec int) string {
	if !has {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
