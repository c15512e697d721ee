// Package source fetches market and options context straight from Alpaca's
// market-data API, bypassing the analytical service.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"robin/internal/domain"
	"robin/internal/normalize"
	"robin/internal/util"
)

// DefaultLookback is how much daily history MarketContext requests.
const DefaultLookback = 90 * 24 * time.Hour

// Alpaca builds analysis contexts from Alpaca market data.
type Alpaca struct {
	client   *marketdata.Client
	feed     string
	lookback time.Duration
	limiter  *util.RateLimiter
	now      func() time.Time
	log      *slog.Logger
}

// NewAlpaca creates a source with the given Alpaca credentials. dataURL and
// feed may be empty to use Alpaca's defaults. rateLimitPerMin <= 0 disables
// throttling.
func NewAlpaca(apiKey, apiSecret, dataURL, feed string, rateLimitPerMin int) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &Alpaca{
		client:   marketdata.NewClient(opts),
		feed:     feed,
		lookback: DefaultLookback,
		limiter:  util.NewRateLimiter(rateLimitPerMin),
		now:      time.Now,
		log:      slog.Default().With("source", "alpaca"),
	}
}

// Load fetches the market context, options chain and recent news for symbol.
func (a *Alpaca) Load(ctx context.Context, symbol string) (*domain.AnalysisContext, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	mc, err := a.MarketContext(ctx, symbol)
	if err != nil {
		return nil, err
	}
	chain, err := a.OptionsChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	knowledge, err := a.Knowledge(ctx, symbol)
	if err != nil {
		// News is supplementary; the context is usable without it.
		a.log.Warn("news unavailable", "symbol", symbol, "error", err)
	}
	return &domain.AnalysisContext{
		Symbol:    symbol,
		Market:    mc,
		Options:   chain,
		Knowledge: knowledge,
		UpdatedAt: a.now(),
	}, nil
}

// MarketContext fetches the latest snapshot and the daily closes over the
// lookback window. The series goes through the same reconciliation as
// service data.
func (a *Alpaca) MarketContext(ctx context.Context, symbol string) (*domain.MarketContext, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	snap, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{
		Feed: marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetSnapshot %s: %w", symbol, err)
	}

	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	end := a.now()
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.Add(-a.lookback),
		End:       end,
		Feed:      marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	mc := &domain.MarketContext{Snapshot: snapshotFromAlpaca(symbol, snap)}
	if len(bars) > 0 {
		series, err := normalize.ReconcileBlock(blockFromBars(bars))
		if err != nil {
			return nil, fmt.Errorf("%s daily bars: %w", symbol, err)
		}
		mc.Series = series
	}
	a.log.Debug("market context loaded", "symbol", symbol, "bars", len(bars))
	return mc, nil
}

// OptionsChain fetches the option chain snapshot for the underlying.
func (a *Alpaca) OptionsChain(ctx context.Context, symbol string) (*domain.OptionsChain, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	snaps, err := a.client.GetOptionChain(symbol, marketdata.GetOptionChainRequest{})
	if err != nil {
		return nil, fmt.Errorf("GetOptionChain %s: %w", symbol, err)
	}
	chain := chainFromSnapshots(symbol, snaps, a.log)
	chain.Timestamp = a.now()
	return chain, nil
}

func (a *Alpaca) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return a.limiter.Wait(ctx)
}

func snapshotFromAlpaca(symbol string, s *marketdata.Snapshot) domain.MarketSnapshot {
	out := domain.MarketSnapshot{Symbol: symbol}
	if s == nil {
		return out
	}
	if s.LatestTrade != nil {
		out.CurrentPrice = s.LatestTrade.Price
		out.Timestamp = s.LatestTrade.Timestamp
	}
	if s.LatestQuote != nil {
		out.Bid = s.LatestQuote.BidPrice
		out.Ask = s.LatestQuote.AskPrice
	}
	if s.DailyBar != nil {
		out.Volume = float64(s.DailyBar.Volume)
		if out.CurrentPrice == 0 {
			out.CurrentPrice = s.DailyBar.Close
			out.Timestamp = s.DailyBar.Timestamp
		}
	}
	return out
}

func blockFromBars(bars []marketdata.Bar) normalize.DailyBlock {
	b := normalize.DailyBlock{
		Dates:  make([]string, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]float64, len(bars)),
	}
	for i, bar := range bars {
		b.Dates[i] = bar.Timestamp.UTC().Format(util.DateLayout)
		b.Close[i] = bar.Close
		b.Volume[i] = float64(bar.Volume)
	}
	return b
}

// chainFromSnapshots converts Alpaca's symbol-keyed snapshots into a chain.
// Symbols that are not valid OCC symbols are skipped. Contracts are ordered
// by symbol so the result is deterministic.
func chainFromSnapshots(underlying string, snaps map[string]marketdata.OptionSnapshot, log *slog.Logger) *domain.OptionsChain {
	symbols := make([]string, 0, len(snaps))
	for sym := range snaps {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	chain := &domain.OptionsChain{
		Underlying: underlying,
		Contracts:  make([]domain.OptionContract, 0, len(symbols)),
	}
	for _, sym := range symbols {
		occ, err := ParseOCCSymbol(sym)
		if err != nil {
			log.Debug("skipping option symbol", "symbol", sym, "error", err)
			continue
		}
		c := occ.Contract()
		if c.UnderlyingSymbol == "" {
			c.UnderlyingSymbol = underlying
		}
		snap := snaps[sym]
		if q := snap.LatestQuote; q != nil {
			c.BidPrice = util.FormatDecimal(q.BidPrice)
			c.AskPrice = util.FormatDecimal(q.AskPrice)
			c.MidPrice = util.FormatDecimal((q.BidPrice + q.AskPrice) / 2)
			c.Spread = util.FormatDecimal(q.AskPrice - q.BidPrice)
			c.ClosePrice = c.MidPrice
		}
		if trade := snap.LatestTrade; trade != nil {
			c.ClosePrice = util.FormatDecimal(trade.Price)
		}
		if g := snap.Greeks; g != nil {
			c.Greeks = &domain.Greeks{Delta: g.Delta, Gamma: g.Gamma, Theta: g.Theta, Vega: g.Vega, Rho: g.Rho}
		}
		chain.Contracts = append(chain.Contracts, c)
	}
	return chain
}
