package util

import (
	"strings"
	"time"
)

// DateLayout is the canonical form for daily series dates.
const DateLayout = "2006-01-02"

// isoLayouts are the ISO-8601 forms accepted for dates and timestamps.
var isoLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 date or timestamp. Values without a zone
// are read as UTC. ok is false when s is not a real calendar date.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
