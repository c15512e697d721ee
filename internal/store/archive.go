package store

import (
	"context"
	"errors"
	"io"

	"robin/internal/domain"
)

// Archive records what a session saw. It is write-behind only: nothing is
// ever restored from it into a live session.
type Archive interface {
	RecordSeries(ctx context.Context, symbol string, series *domain.DailySeries) error
	RecordMessage(ctx context.Context, entry TranscriptEntry) error
	Close() error
}

type archive struct {
	series     SeriesStore
	transcript TranscriptStore
}

// NewArchive combines a series and a transcript store. Either may be nil, in
// which case the corresponding records are dropped.
func NewArchive(series SeriesStore, transcript TranscriptStore) Archive {
	return &archive{series: series, transcript: transcript}
}

func (a *archive) RecordSeries(ctx context.Context, symbol string, series *domain.DailySeries) error {
	if a.series == nil || series.Len() == 0 {
		return nil
	}
	return a.series.WriteSeries(ctx, symbol, series)
}

func (a *archive) RecordMessage(ctx context.Context, entry TranscriptEntry) error {
	if a.transcript == nil {
		return nil
	}
	return a.transcript.SaveMessage(ctx, entry)
}

// Close closes whichever underlying stores hold resources.
func (a *archive) Close() error {
	var errs []error
	for _, s := range []any{a.series, a.transcript} {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// NoopArchive is used when archiving is not configured.
type NoopArchive struct{}

func (NoopArchive) RecordSeries(context.Context, string, *domain.DailySeries) error { return nil }
func (NoopArchive) RecordMessage(context.Context, TranscriptEntry) error            { return nil }
func (NoopArchive) Close() error                                                    { return nil }
