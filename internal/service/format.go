package service

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes found in stored records and CSVs.
// Values without a zone are read as local wall-clock time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatShortDate renders s as "09:30 AM · 12/1/2025". Unparsable input is
// returned unchanged.
func FormatShortDate(s string) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.Local().Format("03:04 PM · 1/2/2006")
}

// compareTimes orders two timestamps ascending; unparsable values sort last.
func compareTimes(a, b string) int {
	ta, okA := ParseTime(a)
	tb, okB := ParseTime(b)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// compareTimesDesc orders two timestamps newest first; unparsable values
// still sort last.
func compareTimesDesc(a, b string) int {
	ta, okA := ParseTime(a)
	tb, okB := ParseTime(b)
	switch {
	case okA && okB:
		return tb.Compare(ta)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}
