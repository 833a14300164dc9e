// Package timecode converts between floating-point seconds and the fixed
// `HH:MM:SS.mmm` textual form used everywhere an annotation timestamp is
// shown or edited.
//
// Both directions are pure functions. [Format] never fails; [Parse] reports
// malformed input through an error so that callers can reject an edit
// without aborting the session.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadFormat is returned by [Parse] when the input does not match the
// canonical `HH:MM:SS.mmm` shape.
var ErrBadFormat = errors.New("timecode: malformed time text")

// pattern matches the canonical form after fractional-digit padding.
// Hours are unbounded but at least two digits; minutes and seconds are
// strictly below 60.
var pattern = regexp.MustCompile(`^(\d{2,}):([0-5]\d):([0-5]\d)\.(\d{3})$`)

// Format renders t (seconds) as `HH:MM:SS.mmm`. Hours grow beyond two
// digits when needed; milliseconds are truncated, not rounded. NaN,
// infinite, or negative input formats as "00:00:00.000" so that a display
// never shows garbage for an unknown position.
func Format(t float64) string {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return "00:00:00.000"
	}
	total := int64(t)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	millis := int64((t - math.Floor(t)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// Parse converts canonical `HH:MM:SS.mmm` text back to seconds.
//
// One or two fractional digits are tolerated and right-padded with zeros
// before strict matching, so "00:00:01.5" parses as 1.500. Any other shape
// returns [ErrBadFormat].
func Parse(text string) (float64, error) {
	text = strings.TrimSpace(text)

	// Right-pad a short fractional part to three digits.
	if dot := strings.LastIndexByte(text, '.'); dot >= 0 {
		frac := text[dot+1:]
		if n := len(frac); n >= 1 && n < 3 && isDigits(frac) {
			text += strings.Repeat("0", 3-n)
		}
	}

	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrBadFormat
	}

	hours, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, ErrBadFormat
	}
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)
	millis, _ := strconv.ParseInt(m[4], 10, 64)

	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// isDigits reports whether s is non-empty and consists only of ASCII digits.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
