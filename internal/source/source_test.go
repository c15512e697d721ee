package source

import (
	"log/slog"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robin/internal/domain"
)

func TestParseOCCSymbol(t *testing.T) {
	occ, err := ParseOCCSymbol("AAPL240315C00182500")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", occ.Root)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), occ.Expiration)
	assert.Equal(t, domain.OptionTypeCall, occ.Type)
	assert.Equal(t, "182.5", occ.Strike.String())

	c := occ.Contract()
	assert.Equal(t, "AAPL240315C00182500", c.ID)
	assert.Equal(t, "2024-03-15", c.ExpirationDate)
	assert.Equal(t, "AAPL", c.UnderlyingSymbol)
	assert.Equal(t, "182.5", c.StrikePrice)
	assert.Equal(t, "100", c.Size)
}

func TestParseOCCSymbolPaddedPut(t *testing.T) {
	occ, err := ParseOCCSymbol("SPY   241220P00450000")
	require.NoError(t, err)
	assert.Equal(t, "SPY", occ.Root)
	assert.Equal(t, "SPY241220P00450000", occ.Symbol)
	assert.Equal(t, domain.OptionTypePut, occ.Type)
	assert.Equal(t, "450", occ.Strike.String())
}

func TestParseOCCSymbolInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"AAPL",
		"240315C00180000",
		"AAPL241315C00180000",
		"AAPL240315X00180000",
		"AAPL240315C0018000A",
		"TOOLONGROOT240315C00180000",
	} {
		_, err := ParseOCCSymbol(s)
		assert.Error(t, err, s)
	}
}

func TestChainFromSnapshots(t *testing.T) {
	snaps := map[string]marketdata.OptionSnapshot{
		"AAPL240315P00170000": {
			LatestQuote: &marketdata.OptionQuote{BidPrice: 1.5, AskPrice: 1.75},
			Greeks:      &marketdata.OptionGreeks{Delta: -0.4, Gamma: 0.05},
		},
		"AAPL240315C00160000": {LatestTrade: &marketdata.OptionTrade{Price: 9.5}},
		"garbage":             {},
	}

	chain := chainFromSnapshots("AAPL", snaps, slog.Default())
	require.Equal(t, 2, chain.Len())
	assert.Equal(t, "AAPL", chain.Underlying)

	call := chain.Contracts[0]
	assert.Equal(t, "AAPL240315C00160000", call.Symbol)
	assert.Equal(t, domain.OptionTypeCall, call.Type)
	assert.Equal(t, "160", call.StrikePrice)
	assert.Equal(t, "9.5", call.ClosePrice)

	put := chain.Contracts[1]
	assert.Equal(t, domain.OptionTypePut, put.Type)
	assert.Equal(t, "1.625", put.ClosePrice)
	assert.Equal(t, "1.5", put.BidPrice)
	assert.Equal(t, "1.75", put.AskPrice)
	assert.Equal(t, "0.25", put.Spread)
	require.NotNil(t, put.Greeks)
	assert.Equal(t, -0.4, put.Greeks.Delta)
	assert.Nil(t, call.Greeks)
}

func TestBlockFromBars(t *testing.T) {
	bars := []marketdata.Bar{
		{Timestamp: time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC), Close: 175.1, Volume: 81510100},
		{Timestamp: time.Date(2024, 3, 5, 5, 0, 0, 0, time.UTC), Close: 170.12, Volume: 95132400},
	}

	b := blockFromBars(bars)
	assert.Equal(t, []string{"2024-03-04", "2024-03-05"}, b.Dates)
	assert.Equal(t, []float64{175.1, 170.12}, b.Close)
	assert.Equal(t, []float64{81510100, 95132400}, b.Volume)
}

func TestSnapshotFromAlpaca(t *testing.T) {
	ts := time.Date(2024, 3, 5, 20, 59, 0, 0, time.UTC)
	s := &marketdata.Snapshot{
		LatestTrade: &marketdata.Trade{Price: 170.12, Timestamp: ts},
		LatestQuote: &marketdata.Quote{BidPrice: 170.1, AskPrice: 170.15},
		DailyBar:    &marketdata.Bar{Close: 170.12, Volume: 95132400},
	}

	got := snapshotFromAlpaca("AAPL", s)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, 170.12, got.CurrentPrice)
	assert.Equal(t, 170.1, got.Bid)
	assert.Equal(t, 170.15, got.Ask)
	assert.Equal(t, 95132400.0, got.Volume)
	assert.Equal(t, ts, got.Timestamp)

	empty := snapshotFromAlpaca("AAPL", nil)
	assert.Equal(t, domain.MarketSnapshot{Symbol: "AAPL"}, empty)
}

func TestNewsSnippets(t *testing.T) {
	created := time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)
	got := newsSnippets([]marketdata.News{
		{Headline: "Apple unveils new MacBook Air", Summary: "M3 chip ships next week.", CreatedAt: created},
		{Headline: "  ", Summary: ""},
		{Headline: "EU fines Apple", CreatedAt: created},
	})

	assert.Equal(t, []domain.KnowledgeSnippet{
		{Text: "Apple unveils new MacBook Air: M3 chip ships next week.", Source: "alpaca news 2024-03-05"},
		{Text: "EU fines Apple", Source: "alpaca news 2024-03-05"},
	}, got)
}
