package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"robin/internal/domain"
	"robin/internal/util"
)

// flexString accepts a JSON string, number or boolean and keeps its textual
// form. Null decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected a scalar, got %s", data[:1])
	default:
		*f = flexString(data)
	}
	return nil
}

// contractWire is the service's contract shape, tolerant of numbers sent
// either as strings or as JSON numbers.
type contractWire struct {
	ID               flexString      `json:"id"`
	Symbol           flexString      `json:"symbol"`
	Name             flexString      `json:"name"`
	Status           flexString      `json:"status"`
	Tradable         *bool           `json:"tradable"`
	ExpirationDate   flexString      `json:"expiration_date"`
	UnderlyingSymbol flexString      `json:"underlying_symbol"`
	Type             flexString      `json:"type"`
	OptionType       flexString      `json:"option_type"`
	Style            flexString      `json:"style"`
	StrikePrice      flexString      `json:"strike_price"`
	Size             flexString      `json:"size"`
	OpenInterest     flexString      `json:"open_interest"`
	Volume           flexString      `json:"volume"`
	DaysToExpiry     flexString      `json:"days_to_expiry"`
	ClosePrice       flexString      `json:"close_price"`
	LastPrice        flexString      `json:"last_price"`
	BidPrice         flexString      `json:"bid_price"`
	AskPrice         flexString      `json:"ask_price"`
	MidPrice         flexString      `json:"mid_price"`
	Spread           flexString      `json:"spread"`
	Greeks           json.RawMessage `json:"greeks"`
}

type optionsEnvelope struct {
	Symbol      flexString        `json:"symbol"`
	Timestamp   flexString        `json:"timestamp"`
	Contracts   []json.RawMessage `json:"contracts"`
	Metrics     json.RawMessage   `json:"metrics"`
	OptionsData *struct {
		Contracts []json.RawMessage `json:"contracts"`
		Metrics   json.RawMessage   `json:"metrics"`
	} `json:"options_data"`
}

// DecodeOptionsContext validates an options_context blob into a chain. The
// contract list may sit at the top level or under "options_data". Null
// yields an empty chain. Contract numbers are kept as decimal strings.
func DecodeOptionsContext(raw json.RawMessage) (*domain.OptionsChain, error) {
	if isNull(raw) {
		return &domain.OptionsChain{}, nil
	}
	var env optionsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: options_context: %v", ErrInvalidData, err)
	}

	items, metrics := env.Contracts, env.Metrics
	if env.OptionsData != nil {
		if len(items) == 0 {
			items = env.OptionsData.Contracts
		}
		if isNull(metrics) {
			metrics = env.OptionsData.Metrics
		}
	}

	chain := &domain.OptionsChain{
		Underlying: strings.ToUpper(string(env.Symbol)),
		Contracts:  make([]domain.OptionContract, 0, len(items)),
	}
	if t, ok := util.ParseTimestamp(string(env.Timestamp)); ok {
		chain.Timestamp = t
	}

	for i, item := range items {
		var w contractWire
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, fmt.Errorf("%w: options_context.contracts[%d]: %v", ErrInvalidData, i, err)
		}
		c, err := w.contract()
		if err != nil {
			return nil, fmt.Errorf("%w: options_context.contracts[%d]: %v", ErrInvalidData, i, err)
		}
		if c.UnderlyingSymbol == "" {
			c.UnderlyingSymbol = chain.Underlying
		}
		chain.Contracts = append(chain.Contracts, c)
	}
	if chain.Underlying == "" && len(chain.Contracts) > 0 {
		chain.Underlying = chain.Contracts[0].UnderlyingSymbol
	}
	if !isNull(metrics) {
		m, err := decodeChainMetrics(metrics)
		if err != nil {
			return nil, err
		}
		chain.Metrics = m
	}
	return chain, nil
}

func decodeChainMetrics(raw json.RawMessage) (*domain.ChainMetrics, error) {
	fields, err := object(raw, "options_context.metrics")
	if err != nil {
		return nil, err
	}
	v := &fieldReader{fields: fields, scope: "options_context.metrics"}
	m := &domain.ChainMetrics{
		TotalVolume:       v.nonNegative("total_volume"),
		TotalOpenInterest: v.nonNegative("total_open_interest"),
		PutCallRatio:      v.nonNegative("put_call_ratio"),
	}
	if v.err != nil {
		return nil, v.err
	}
	return m, nil
}

// decodeGreeks reads a greeks object. Missing, null or non-numeric entries
// are zero.
func decodeGreeks(raw json.RawMessage) (*domain.Greeks, error) {
	if isNull(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, errors.New("greeks: expected an object")
	}
	num := func(key string) float64 {
		f, _ := util.ParseNumber(fields[key])
		return f
	}
	return &domain.Greeks{
		Delta: num("delta"),
		Gamma: num("gamma"),
		Theta: num("theta"),
		Vega:  num("vega"),
		Rho:   num("rho"),
	}, nil
}

func (w contractWire) contract() (domain.OptionContract, error) {
	typ := w.Type
	if typ == "" {
		typ = w.OptionType
	}
	last := w.ClosePrice
	if last == "" {
		last = w.LastPrice
	}
	if last == "" {
		last = w.MidPrice
	}
	greeks, err := decodeGreeks(w.Greeks)
	if err != nil {
		return domain.OptionContract{}, err
	}
	c := domain.OptionContract{
		ID:               string(w.ID),
		Symbol:           string(w.Symbol),
		Name:             string(w.Name),
		Status:           string(w.Status),
		ExpirationDate:   string(w.ExpirationDate),
		UnderlyingSymbol: strings.ToUpper(string(w.UnderlyingSymbol)),
		Type:             ParseOptionType(string(typ)),
		Style:            string(w.Style),
		StrikePrice:      string(w.StrikePrice),
		Size:             string(w.Size),
		OpenInterest:     string(w.OpenInterest),
		Volume:           string(w.Volume),
		DaysToExpiry:     string(w.DaysToExpiry),
		ClosePrice:       string(last),
		BidPrice:         string(w.BidPrice),
		AskPrice:         string(w.AskPrice),
		MidPrice:         string(w.MidPrice),
		Spread:           string(w.Spread),
		Greeks:           greeks,
	}
	if w.Tradable != nil {
		c.Tradable = *w.Tradable
	}
	if c.ID == "" {
		c.ID = c.Symbol
	}
	return c, nil
}

// ParseOptionType maps the spellings seen on the wire onto OptionType.
// Unknown values are lower-cased and passed through.
func ParseOptionType(s string) domain.OptionType {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "call", "calls", "c":
		return domain.OptionTypeCall
	case "put", "puts", "p":
		return domain.OptionTypePut
	default:
		return domain.OptionType(v)
	}
}
