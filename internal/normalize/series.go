// Package normalize validates the JSON blobs returned by the analytical
// service and turns them into typed domain values. Nothing past this
// boundary sees partially valid data.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"robin/internal/domain"
	"robin/internal/util"
)

// ErrInvalidData reports a payload that cannot be turned into a usable
// value. It is not retryable.
var ErrInvalidData = errors.New("normalize: invalid data")

// DailyBlock is the typed form of a daily block, used by sources that already
// hold native values.
type DailyBlock struct {
	Dates  []string
	Close  []float64
	Volume []float64
}

// cell is one candidate element with its validation verdict.
type cell[T any] struct {
	v  T
	ok bool
}

// Reconcile turns a raw {"dates": [...], "close": [...], "volume": [...]}
// block into an index-aligned DailySeries.
//
// Missing or non-array fields count as empty. The three sequences are first
// right-aligned to their common length (older entries are dropped), then any
// index holding an invalid date, price or volume is dropped from all three,
// and the result is right-aligned again. An empty result fails with
// ErrInvalidData.
func Reconcile(raw json.RawMessage) (*domain.DailySeries, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	dates := mapCells(arrayField(fields, "dates"), parseDate)
	prices := mapCells(arrayField(fields, "close"), parsePrice)
	volumes := mapCells(arrayField(fields, "volume"), parseVolume)

	return reconcile(dates, prices, volumes)
}

// ReconcileBlock applies the Reconcile rules to already-typed values.
func ReconcileBlock(b DailyBlock) (*domain.DailySeries, error) {
	dates := make([]cell[string], len(b.Dates))
	for i, d := range b.Dates {
		dates[i] = cell[string]{v: d, ok: validDate(d)}
	}
	prices := make([]cell[float64], len(b.Close))
	for i, p := range b.Close {
		prices[i] = cell[float64]{v: p, ok: finite(p)}
	}
	volumes := make([]cell[float64], len(b.Volume))
	for i, v := range b.Volume {
		volumes[i] = cell[float64]{v: v, ok: finite(v) && v >= 0}
	}
	return reconcile(dates, prices, volumes)
}

func reconcile(dates []cell[string], prices, volumes []cell[float64]) (*domain.DailySeries, error) {
	n := min(len(dates), len(prices), len(volumes))
	dates, prices, volumes = tail(dates, n), tail(prices, n), tail(volumes, n)

	out := &domain.DailySeries{
		Dates:   make([]string, 0, n),
		Prices:  make([]float64, 0, n),
		Volumes: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		if !dates[i].ok || !prices[i].ok || !volumes[i].ok {
			continue
		}
		out.Dates = append(out.Dates, dates[i].v)
		out.Prices = append(out.Prices, prices[i].v)
		out.Volumes = append(out.Volumes, volumes[i].v)
	}

	m := min(len(out.Dates), len(out.Prices), len(out.Volumes))
	out.Dates, out.Prices, out.Volumes = tail(out.Dates, m), tail(out.Prices, m), tail(out.Volumes, m)
	if m == 0 {
		return nil, fmt.Errorf("%w: daily series is empty after reconciliation", ErrInvalidData)
	}
	return out, nil
}

// tail keeps the last n elements of s.
func tail[T any](s []T, n int) []T {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return s[:0]
	}
	return s[len(s)-n:]
}

func mapCells[T any](raw []json.RawMessage, parse func(json.RawMessage) (T, bool)) []cell[T] {
	out := make([]cell[T], len(raw))
	for i, r := range raw {
		v, ok := parse(r)
		out[i] = cell[T]{v: v, ok: ok}
	}
	return out
}

// arrayField returns fields[key] as a slice of raw elements, or nil when the
// key is missing or does not hold an array.
func arrayField(fields map[string]json.RawMessage, key string) []json.RawMessage {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	return arr
}

func parseDate(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, validDate(s)
}

func validDate(s string) bool {
	_, ok := util.ParseTimestamp(s)
	return ok
}

func parsePrice(raw json.RawMessage) (float64, bool) {
	return util.ParseNumber(raw)
}

func parseVolume(raw json.RawMessage) (float64, bool) {
	v, ok := util.ParseNumber(raw)
	return v, ok && v >= 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
