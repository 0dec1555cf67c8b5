// =============================================================================
// Journal Batch Upload - Date Canonicalizer
// =============================================================================
//
// The receiving service only accepts dates as the literal
//
//   /Date(<epoch milliseconds at UTC midnight>)/
//
// Two conversion paths exist:
//   - ToCanonical: strict, used while ingesting spreadsheet cells. Only
//     d/M/yyyy text is accepted; anything else is absent.
//   - Recanonicalize: lenient and idempotent, used before submission and on
//     user edits. Canonical markers pass through unchanged.
//
// Absence is represented by the empty string. Neither path returns an error.
//
// =============================================================================

package canon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dmyPattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	markerPattern = regexp.MustCompile(`^/Date\((-?\d+)\)/$`)
)

// lenientLayouts are tried in order by Recanonicalize after the strict
// d/M/yyyy form. The time of day, if any, is discarded.
var lenientLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ToCanonical converts d/M/yyyy text to a canonical marker.
// It returns "" for empty input and for any other shape.
//
// Out-of-range day and month values roll over the way calendar arithmetic
// does (31/02/2024 is 2 March 2024).
func ToCanonical(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	m := dmyPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return marker(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

// Recanonicalize is the pre-submission path. It accepts a canonical marker
// (returned unchanged), d/M/yyyy text, or any date string in lenientLayouts.
// Unparseable input yields "".
func Recanonicalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if IsMarker(s) {
		return s
	}
	if c := ToCanonical(s); c != "" {
		return c
	}
	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t)
		}
	}
	return ""
}

// FromTime returns the marker for the UTC calendar date of t.
func FromTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	u := t.UTC()
	return marker(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC))
}

// IsMarker reports whether s is a well-formed canonical marker.
func IsMarker(s string) bool {
	return markerPattern.MatchString(s)
}

// ParseMarker extracts the instant encoded by a canonical marker.
func ParseMarker(s string) (time.Time, bool) {
	m := markerPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Display renders a marker as dd/MM/yyyy for terminal output. Other
// values are returned as-is.
func Display(s string) string {
	if t, ok := ParseMarker(s); ok {
		return t.Format("02/01/2006")
	}
	return s
}

func marker(t time.Time) string {
	return fmt.Sprintf("/Date(%d)/", t.UnixMilli())
}
