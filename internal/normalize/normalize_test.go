package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robin/internal/domain"
)

func TestReconcileRightAligns(t *testing.T) {
	raw := json.RawMessage(`{
		"dates": ["2024-01-01","2024-01-02","2024-01-03","2024-01-04","2024-01-05"],
		"close": [10, 11, 12],
		"volume": [100, 200, 300, 400, 500]
	}`)

	s, err := Reconcile(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-03", "2024-01-04", "2024-01-05"}, s.Dates)
	assert.Equal(t, []float64{10, 11, 12}, s.Prices)
	assert.Equal(t, []float64{300, 400, 500}, s.Volumes)
}

func TestReconcileDropsInvalidIndexFromAllSequences(t *testing.T) {
	raw := json.RawMessage(`{
		"dates": ["2024-01-01","2024-01-02"],
		"close": [100, "bad"],
		"volume": [1000, 2000]
	}`)

	s, err := Reconcile(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-01"}, s.Dates)
	assert.Equal(t, []float64{100}, s.Prices)
	assert.Equal(t, []float64{1000}, s.Volumes)
}

func TestReconcileIsIdempotent(t *testing.T) {
	raw := json.RawMessage(`{
		"dates": ["2024-03-01","2024-03-04","2024-03-05"],
		"close": ["171.25", 172.5, 170],
		"volume": [1200, 900, 1500]
	}`)

	first, err := Reconcile(raw)
	require.NoError(t, err)

	again, err := json.Marshal(map[string]any{
		"dates":  first.Dates,
		"close":  first.Prices,
		"volume": first.Volumes,
	})
	require.NoError(t, err)

	second, err := Reconcile(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcileRejectsInvalidEntries(t *testing.T) {
	raw := json.RawMessage(`{
		"dates": ["2024-02-30", "not a date", "2024-02-28", "2024-02-29", 17],
		"close": [1, 2, 3, 4, 5],
		"volume": [10, 20, -30, 40, 50]
	}`)

	s, err := Reconcile(raw)
	require.NoError(t, err)

	// Feb 30 is not a calendar date, index 2 has a negative volume and
	// index 4 is not a string.
	assert.Equal(t, []string{"2024-02-29"}, s.Dates)
	assert.Equal(t, []float64{4}, s.Prices)
	assert.Equal(t, []float64{40}, s.Volumes)
}

func TestReconcileEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing fields", `{}`},
		{"non-array field", `{"dates": "2024-01-01", "close": [1], "volume": [1]}`},
		{"missing volume", `{"dates": ["2024-01-01"], "close": [1]}`},
		{"all invalid", `{"dates": ["x"], "close": [1], "volume": [1]}`},
		{"not an object", `[1, 2, 3]`},
		{"null prices", `{"dates": ["2024-01-01"], "close": [null], "volume": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Reconcile(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Nil(t, s)
		})
	}
}

func TestReconcileBlock(t *testing.T) {
	s, err := ReconcileBlock(DailyBlock{
		Dates:  []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		Close:  []float64{1, 2},
		Volume: []float64{5, 6, -1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02"}, s.Dates)
	assert.Equal(t, []float64{1}, s.Prices)
	assert.Equal(t, []float64{6}, s.Volumes)
	assert.Equal(t, 1, s.Len())
}

func TestDecodeMarketContext(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "aapl",
		"current_price": "189.50",
		"volume": 51234000,
		"bid": 189.45,
		"ask": 189.55,
		"market_cap": 2950000000000,
		"timestamp": "2024-03-05T15:30:00Z",
		"daily": {
			"dates": ["2024-03-04", "2024-03-05"],
			"close": [187.1, 189.5],
			"volume": [48000000, 51234000]
		},
		"company": {
			"name": "Apple Inc.",
			"sector": "Technology",
			"pe_ratio": 29.4,
			"fifty_two_week_high": 199.62
		}
	}`)

	mc, err := DecodeMarketContext(raw)
	require.NoError(t, err)
	require.NotNil(t, mc)

	assert.Equal(t, "AAPL", mc.Snapshot.Symbol)
	assert.Equal(t, 189.5, mc.Snapshot.CurrentPrice)
	assert.Equal(t, 189.45, mc.Snapshot.Bid)
	assert.Equal(t, 2024, mc.Snapshot.Timestamp.Year())
	require.NotNil(t, mc.Series)
	assert.Equal(t, 2, mc.Series.Len())
	require.NotNil(t, mc.Company)
	assert.Equal(t, "Apple Inc.", mc.Company.Name)
	assert.Equal(t, 199.62, mc.Company.High52Week)
}

func TestDecodeMarketContextNull(t *testing.T) {
	for _, raw := range []string{``, `null`, `  null `} {
		mc, err := DecodeMarketContext(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Nil(t, mc)
	}
}

func TestDecodeMarketContextWithoutDaily(t *testing.T) {
	mc, err := DecodeMarketContext(json.RawMessage(`{"symbol": "MSFT", "price": 410}`))
	require.NoError(t, err)
	assert.Equal(t, 410.0, mc.Snapshot.CurrentPrice)
	assert.Nil(t, mc.Series)
	assert.Nil(t, mc.Company)
}

func TestDecodeMarketContextInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"array", `[1]`},
		{"string price", `{"current_price": "n/a"}`},
		{"negative volume", `{"volume": -5}`},
		{"numeric symbol", `{"symbol": 42}`},
		{"bad timestamp", `{"timestamp": "yesterday"}`},
		{"empty daily", `{"daily": {"dates": [], "close": [], "volume": []}}`},
		{"company not object", `{"company": "Apple"}`},
		{"negative dividend", `{"company": {"dividend_yield": -1}}`},
		{"metrics not object", `{"metrics": [0.1]}`},
		{"string var", `{"metrics": {"value_at_risk": "low"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMarketContext(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestDecodeOptionsContext(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "aapl",
		"timestamp": "2024-03-05T15:30:00Z",
		"options_data": {
			"contracts": [
				{
					"id": "a1",
					"symbol": "AAPL240315C00180000",
					"expiration_date": "2024-03-15",
					"underlying_symbol": "AAPL",
					"type": "call",
					"style": "american",
					"strike_price": "180",
					"size": 100,
					"open_interest": "2311",
					"close_price": "10.15",
					"tradable": true
				},
				{
					"symbol": "AAPL240315P00180000",
					"expiration_date": "2024-03-15",
					"option_type": "P",
					"strike_price": 180.0,
					"open_interest": null,
					"last_price": "1.02"
				}
			]
		}
	}`)

	chain, err := DecodeOptionsContext(raw)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", chain.Underlying)
	assert.Equal(t, 2024, chain.Timestamp.Year())
	require.Equal(t, 2, chain.Len())

	call := chain.Contracts[0]
	assert.Equal(t, domain.OptionTypeCall, call.Type)
	assert.Equal(t, "180", call.StrikePrice)
	assert.Equal(t, "100", call.Size)
	assert.Equal(t, "american", call.Style)
	assert.True(t, call.Tradable)

	put := chain.Contracts[1]
	assert.Equal(t, domain.OptionTypePut, put.Type)
	assert.Equal(t, "AAPL240315P00180000", put.ID)
	assert.Equal(t, "AAPL", put.UnderlyingSymbol)
	assert.Equal(t, "180.0", put.StrikePrice)
	assert.Equal(t, "", put.OpenInterest)
	assert.Equal(t, "1.02", put.ClosePrice)
}

func TestDecodeOptionsContextTopLevel(t *testing.T) {
	raw := json.RawMessage(`{"contracts": [{"symbol": "X", "underlying_symbol": "spy", "type": "Calls"}]}`)

	chain, err := DecodeOptionsContext(raw)
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())
	assert.Equal(t, "SPY", chain.Underlying)
	assert.Equal(t, domain.OptionTypeCall, chain.Contracts[0].Type)
}

func TestDecodeOptionsContextQuotesAndGreeks(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "AAPL",
		"options_data": {
			"contracts": [
				{
					"symbol": "AAPL240315C00160000",
					"strike_price": 160.0,
					"expiration_date": "2024-03-15T00:00:00+00:00",
					"option_type": "call",
					"moneyness": 0.95,
					"days_to_expiry": 10,
					"volume": 1234,
					"open_interest": 560,
					"greeks": {"delta": 0.62, "gamma": 0.04, "theta": -0.11, "vega": 0.2, "rho": null},
					"bid_price": 9.4,
					"ask_price": 9.6,
					"mid_price": 9.5,
					"spread": 0.2
				}
			],
			"metrics": {"total_volume": 1234, "total_open_interest": 560, "put_call_ratio": 0}
		}
	}`)

	chain, err := DecodeOptionsContext(raw)
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())

	c := chain.Contracts[0]
	assert.Equal(t, "1234", c.Volume)
	assert.Equal(t, "10", c.DaysToExpiry)
	assert.Equal(t, "9.5", c.ClosePrice)
	assert.Equal(t, "9.4", c.BidPrice)
	assert.Equal(t, "9.6", c.AskPrice)
	assert.Equal(t, "9.5", c.MidPrice)
	assert.Equal(t, "0.2", c.Spread)
	require.NotNil(t, c.Greeks)
	assert.Equal(t, domain.Greeks{Delta: 0.62, Gamma: 0.04, Theta: -0.11, Vega: 0.2}, *c.Greeks)

	require.NotNil(t, chain.Metrics)
	assert.Equal(t, domain.ChainMetrics{TotalVolume: 1234, TotalOpenInterest: 560}, *chain.Metrics)
}

func TestDecodeMarketContextMetrics(t *testing.T) {
	mc, err := DecodeMarketContext(json.RawMessage(`{
		"symbol": "AAPL",
		"current_price": 168,
		"metrics": {"value_at_risk": -0.021, "cvar": -0.034, "log_returns": 0.004}
	}`))
	require.NoError(t, err)
	require.NotNil(t, mc.Metrics)
	assert.Equal(t, domain.RiskMetrics{ValueAtRisk: -0.021, CVaR: -0.034, LogReturn: 0.004}, *mc.Metrics)

	mc, err = DecodeMarketContext(json.RawMessage(`{"symbol": "AAPL", "metrics": null}`))
	require.NoError(t, err)
	assert.Nil(t, mc.Metrics)
}

func TestDecodeOptionsContextNull(t *testing.T) {
	chain, err := DecodeOptionsContext(json.RawMessage(`null`))
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, 0, chain.Len())
}

func TestDecodeOptionsContextInvalid(t *testing.T) {
	for _, raw := range []string{
		`"contracts"`,
		`{"contracts": [1, 2]}`,
		`{"contracts": [{"strike_price": {"value": 1}}]}`,
		`{"contracts": [{"greeks": [0.5]}]}`,
		`{"contracts": [], "metrics": {"put_call_ratio": -1}}`,
	} {
		_, err := DecodeOptionsContext(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidData, raw)
	}
}

func TestParseOptionType(t *testing.T) {
	assert.Equal(t, domain.OptionTypeCall, ParseOptionType(" C "))
	assert.Equal(t, domain.OptionTypePut, ParseOptionType("PUT"))
	assert.Equal(t, domain.OptionType("straddle"), ParseOptionType("Straddle"))
}

func TestDecodeKnowledge(t *testing.T) {
	text := json.RawMessage(`"Relevant Trading Knowledge:\n\nCovered calls cap upside.\n  Puts hedge downside.  \n"`)
	got := DecodeKnowledge(text)
	assert.Equal(t, []domain.KnowledgeSnippet{
		{Text: "Covered calls cap upside."},
		{Text: "Puts hedge downside."},
	}, got)

	mixed := json.RawMessage(`[
		"Theta decays faster near expiry.",
		{"text": "IV crush follows earnings.", "source": "playbook.md"},
		{"content": "Delta approximates probability ITM."},
		{"text": "   "},
		42
	]`)
	got = DecodeKnowledge(mixed)
	assert.Equal(t, []domain.KnowledgeSnippet{
		{Text: "Theta decays faster near expiry."},
		{Text: "IV crush follows earnings.", Source: "playbook.md"},
		{Text: "Delta approximates probability ITM."},
	}, got)

	assert.Nil(t, DecodeKnowledge(json.RawMessage(`null`)))
	assert.Nil(t, DecodeKnowledge(json.RawMessage(`{"text": 1}`)))
}
