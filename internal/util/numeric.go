package util

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// The service encodes strikes, prices, sizes and open interest as decimal
// strings. Parsing is deliberately lossy: anything that does not parse as a
// finite decimal becomes zero rather than failing the batch it belongs to.

// ParseDecimal parses a decimal string into a float64. Empty, malformed or
// non-finite input yields 0.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseCount parses a decimal string into an integer count, truncating any
// fractional part. Invalid input yields 0.
func ParseCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Truncate(0).IntPart()
}

// ParseNumber decodes a JSON value that is either a number or a numeric
// string. ok is false for anything else, including null and non-finite
// values.
func ParseNumber(raw json.RawMessage) (f float64, ok bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if n == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, false
	}
	f, _ = d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatDecimal renders f in the service's decimal string form, without an
// exponent or trailing zeros.
func FormatDecimal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return decimal.NewFromFloat(f).String()
}
