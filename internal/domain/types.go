// Package domain defines the core value types shared by the transport,
// normalization, analytics and session layers.
package domain

import "time"

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// OptionType is the right carried by an option contract.
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// MarketSnapshot is a point-in-time quote for an underlying. It is replaced
// wholesale on every fetch and never mutated.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	Volume       float64   `json:"volume"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	MarketCap    float64   `json:"market_cap"`
	Timestamp    time.Time `json:"timestamp"`
}

// DailySeries holds three index-aligned sequences ordered by ascending date.
// After normalization len(Dates) == len(Prices) == len(Volumes) >= 1.
type DailySeries struct {
	Dates   []string  `json:"dates"`
	Prices  []float64 `json:"prices"`
	Volumes []float64 `json:"volumes"`
}

// Len returns the number of aligned points in the series.
func (s *DailySeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Last returns the most recent point. ok is false for an empty series.
func (s *DailySeries) Last() (date string, price, volume float64, ok bool) {
	n := s.Len()
	if n == 0 {
		return "", 0, 0, false
	}
	return s.Dates[n-1], s.Prices[n-1], s.Volumes[n-1], true
}

// CompanyProfile carries the fundamentals the service attaches to a market
// context.
type CompanyProfile struct {
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	PERatio       float64 `json:"pe_ratio"`
	EPS           float64 `json:"eps"`
	DividendYield float64 `json:"dividend_yield"`
	High52Week    float64 `json:"fifty_two_week_high"`
	Low52Week     float64 `json:"fifty_two_week_low"`
	Description   string  `json:"description"`
}

// RiskMetrics are the return-distribution figures computed from the recent
// daily closes.
type RiskMetrics struct {
	ValueAtRisk float64 `json:"value_at_risk"`
	CVaR        float64 `json:"cvar"`
	LogReturn   float64 `json:"log_returns"`
}

// MarketContext is the validated form of the service's market_context blob.
// A nil *MarketContext means the service returned none.
type MarketContext struct {
	Snapshot MarketSnapshot
	Series   *DailySeries
	Company  *CompanyProfile
	Metrics  *RiskMetrics
}

// KnowledgeSnippet is one retrieved passage from the service's knowledge base.
type KnowledgeSnippet struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Greeks are the contract's sensitivities. Missing values are zero.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// OptionContract is a listed contract as delivered by the service. Numeric
// fields stay as decimal strings; Status, Style and Tradable pass through
// untouched.
type OptionContract struct {
	ID               string     `json:"id"`
	Symbol           string     `json:"symbol"`
	Name             string     `json:"name,omitempty"`
	Status           string     `json:"status,omitempty"`
	Tradable         bool       `json:"tradable"`
	ExpirationDate   string     `json:"expiration_date"`
	UnderlyingSymbol string     `json:"underlying_symbol"`
	Type             OptionType `json:"type"`
	Style            string     `json:"style,omitempty"`
	StrikePrice      string     `json:"strike_price"`
	Size             string     `json:"size"`
	OpenInterest     string     `json:"open_interest"`
	Volume           string     `json:"volume,omitempty"`
	DaysToExpiry     string     `json:"days_to_expiry,omitempty"`
	// ClosePrice is the last traded price, or the quote midpoint when the
	// contract has not traded.
	ClosePrice string  `json:"close_price"`
	BidPrice   string  `json:"bid_price,omitempty"`
	AskPrice   string  `json:"ask_price,omitempty"`
	MidPrice   string  `json:"mid_price,omitempty"`
	Spread     string  `json:"spread,omitempty"`
	Greeks     *Greeks `json:"greeks,omitempty"`
}

// ChainMetrics are the chain-wide totals reported alongside the contracts.
type ChainMetrics struct {
	TotalVolume       float64 `json:"total_volume"`
	TotalOpenInterest float64 `json:"total_open_interest"`
	PutCallRatio      float64 `json:"put_call_ratio"`
}

// OptionsChain is an unordered set of contracts for one underlying. It may
// span several expirations and both option types.
type OptionsChain struct {
	Underlying string           `json:"underlying"`
	Contracts  []OptionContract `json:"contracts"`
	Metrics    *ChainMetrics    `json:"metrics,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Len returns the number of contracts in the chain.
func (c *OptionsChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Contracts)
}

// DisplayContract is an OptionContract with parsed numbers and derived
// moneyness metrics.
type DisplayContract struct {
	OptionContract

	Strike         float64 `json:"strike"`
	LastPrice      float64 `json:"last_price"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Volume         int64   `json:"volume"`
	OpenInterestN  int64   `json:"open_interest_n"`
	IsITM          bool    `json:"is_itm"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	TimeValue      float64 `json:"time_value"`
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// AnalysisContext pairs the latest market context with the options chain and
// retrieved knowledge for one symbol. It is replaced atomically.
type AnalysisContext struct {
	Symbol    string
	Market    *MarketContext
	Options   *OptionsChain
	Knowledge []KnowledgeSnippet
	UpdatedAt time.Time
}

// Message is one entry of the conversation log. Market and Options are
// read-only backlinks to the data the message was produced against.
type Message struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
	Market    *MarketSnapshot
	Options   *OptionsChain
}
