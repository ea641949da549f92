// Package xmltv provides streaming decoding of XMLTV guide documents.
package xmltv

import (
	"strconv"
	"strings"
	"time"
)

// timeLayout is the fixed-width XMLTV timestamp prefix.
const timeLayout = "20060102150405"

// ParseTime parses an XMLTV timestamp of the form "yyyyMMddHHmmss",
// optionally followed by whitespace and a ±HHMM offset.
//
// Timestamps without an offset are interpreted in the local timezone of the
// running process, matching how most feeds are authored for the viewer's
// clock. Offset timestamps are converted to local time.
//
// Returns ok=false for inputs shorter than 14 characters, non-numeric
// prefixes, or malformed offsets. Never panics.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(timeLayout) {
		return time.Time{}, false
	}

	stamp := s[:len(timeLayout)]
	if !allDigits(stamp) {
		return time.Time{}, false
	}

	rest := strings.TrimSpace(s[len(timeLayout):])
	if rest == "" {
		t, err := time.ParseInLocation(timeLayout, stamp, time.Local)
		if err != nil {
			return time.Time{}, false
		}

		return t, true
	}

	zone, ok := parseOffset(rest)
	if !ok {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(timeLayout, stamp, zone)
	if err != nil {
		return time.Time{}, false
	}

	return t.In(time.Local), true
}

// parseOffset parses a "±HHMM" timezone offset segment.
func parseOffset(s string) (*time.Location, bool) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, false
	}

	if !allDigits(s[1:]) {
		return nil, false
	}

	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, false
	}

	minutes, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, false
	}

	seconds := hours*3600 + minutes*60
	if s[0] == '-' {
		seconds = -seconds
	}

	return time.FixedZone(s, seconds), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return len(s) > 0
}
