// Package dashboard renders session state and options views as plain text
// for terminal output.
package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	return humanize.Comma(n)
}

// FormatVolume formats a share or contract volume with B/M/K suffixes.
func FormatVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatMarketCap formats a market capitalisation as "$2.9T" style text, or
// "-" when unknown.
func FormatMarketCap(v float64) string {
	if v <= 0 {
		return "-"
	}
	value, prefix := humanize.ComputeSI(v)
	switch prefix {
	case "G":
		prefix = "B"
	case "k":
		prefix = "K"
	}
	return fmt.Sprintf("$%s%s", humanize.FtoaWithDigits(value, 2), prefix)
}

// FormatPrice formats a price value as X.XX, or "-" for zero/max.
func FormatPrice(p float64) string {
	if p == math.MaxFloat64 || p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatChange formats the move from prev to last as "+X.XX%", or "" when
// prev is zero.
func FormatChange(prev, last float64) string {
	if prev == 0 {
		return ""
	}
	return fmt.Sprintf("%+.2f%%", (last-prev)/prev*100)
}

// FormatAge formats t relative to now, e.g. "3 minutes ago".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
