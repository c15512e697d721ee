package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"robin/internal/domain"
	"robin/internal/util"
)

// Compile-time interface check.
var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// SeriesRecord is the Parquet schema for one daily series point.
type SeriesRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteSeries writes series points to Parquet files organized by symbol and
// year. Each symbol+year combination produces a separate file at:
//
//	<DataDir>/series/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteSeries(ctx context.Context, symbol string, series *domain.DailySeries) error {
	if series.Len() == 0 {
		return nil
	}
	symbol = strings.ToUpper(symbol)

	byYear := make(map[int][]SeriesRecord)
	for i := 0; i < series.Len(); i++ {
		t, ok := util.ParseTimestamp(series.Dates[i])
		if !ok {
			return fmt.Errorf("series %s: invalid date %q", symbol, series.Dates[i])
		}
		t = t.UTC()
		byYear[t.Year()] = append(byYear[t.Year()], SeriesRecord{
			Symbol:    symbol,
			Timestamp: t.UnixMilli(),
			Close:     series.Prices[i],
			Volume:    series.Volumes[i],
		})
	}

	for year, incoming := range byYear {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := s.seriesPath(symbol, year)

		existing, err := readParquetFile[SeriesRecord](path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading series for %s/%d: %w", symbol, year, err)
		}
		if err := writeParquetFile(path, mergeSeriesRecords(existing, incoming)); err != nil {
			return fmt.Errorf("writing series for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadSeries reads series points for the given symbol and time range. A
// symbol with no stored points yields an empty series.
func (s *ParquetStore) ReadSeries(_ context.Context, symbol string, start, end time.Time) (*domain.DailySeries, error) {
	out := &domain.DailySeries{}
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		records, err := readParquetFile[SeriesRecord](s.seriesPath(symbol, year))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading series for %s/%d: %w", symbol, year, err)
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out.Dates = append(out.Dates, ts.Format(util.DateLayout))
			out.Prices = append(out.Prices, r.Close)
			out.Volumes = append(out.Volumes, r.Volume)
		}
	}
	return out, nil
}

// ListSymbols lists all symbols that have series data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "series"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// seriesPath returns the filesystem path for a series Parquet file.
func (s *ParquetStore) seriesPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "series", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeSeriesRecords deduplicates records by (symbol, timestamp), preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeSeriesRecords(existing, incoming []SeriesRecord) []SeriesRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]SeriesRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]SeriesRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
