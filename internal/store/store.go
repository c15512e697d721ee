// Package store defines storage interfaces for archiving reconciled market
// series and conversation transcripts.
package store

import (
	"context"
	"time"

	"robin/internal/domain"
)

// SeriesStore persists and retrieves reconciled daily series.
type SeriesStore interface {
	// WriteSeries merges a series into storage. Points already stored for the
	// same date are overwritten.
	WriteSeries(ctx context.Context, symbol string, series *domain.DailySeries) error

	// ReadSeries returns the stored points for symbol within [start, end].
	ReadSeries(ctx context.Context, symbol string, start, end time.Time) (*domain.DailySeries, error)

	// ListSymbols returns all symbols with archived series.
	ListSymbols(ctx context.Context) ([]string, error)
}

// TranscriptEntry is one archived conversation message.
type TranscriptEntry struct {
	SessionID string
	Symbol    string
	// Price is the reference price the message was produced against, 0 when
	// there was none.
	Price   float64
	Message domain.Message
}

// TranscriptStore persists and retrieves conversation messages.
type TranscriptStore interface {
	// SaveMessage inserts a message. Saving the same message ID twice
	// replaces the earlier row.
	SaveMessage(ctx context.Context, entry TranscriptEntry) error

	// ListMessages returns the most recent messages in chronological order,
	// up to limit. An empty sessionID lists across all sessions.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]TranscriptEntry, error)
}
