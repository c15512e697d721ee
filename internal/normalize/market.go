package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"robin/internal/domain"
	"robin/internal/util"
)

// DecodeMarketContext validates a market_context blob. A null or absent blob
// yields (nil, nil). Every known field is type-checked; a malformed field, or
// a daily block that reconciles to nothing, fails with ErrInvalidData.
func DecodeMarketContext(raw json.RawMessage) (*domain.MarketContext, error) {
	if isNull(raw) {
		return nil, nil
	}
	fields, err := object(raw, "market_context")
	if err != nil {
		return nil, err
	}

	v := &fieldReader{fields: fields, scope: "market_context"}
	mc := &domain.MarketContext{
		Snapshot: domain.MarketSnapshot{
			Symbol:       strings.ToUpper(v.text("symbol")),
			CurrentPrice: v.nonNegative("current_price", "price"),
			Volume:       v.nonNegative("volume"),
			Bid:          v.nonNegative("bid", "bid_price"),
			Ask:          v.nonNegative("ask", "ask_price"),
			MarketCap:    v.nonNegative("market_cap"),
			Timestamp:    v.timestamp("timestamp"),
		},
	}
	if v.err != nil {
		return nil, v.err
	}

	if daily, ok := fields["daily"]; ok && !isNull(daily) {
		series, err := Reconcile(daily)
		if err != nil {
			return nil, fmt.Errorf("market_context.daily: %w", err)
		}
		mc.Series = series
	}

	if company, ok := fields["company"]; ok && !isNull(company) {
		profile, err := decodeCompany(company)
		if err != nil {
			return nil, err
		}
		mc.Company = profile
	}

	if metrics, ok := fields["metrics"]; ok && !isNull(metrics) {
		m, err := decodeRiskMetrics(metrics)
		if err != nil {
			return nil, err
		}
		mc.Metrics = m
	}
	return mc, nil
}

func decodeRiskMetrics(raw json.RawMessage) (*domain.RiskMetrics, error) {
	fields, err := object(raw, "market_context.metrics")
	if err != nil {
		return nil, err
	}
	v := &fieldReader{fields: fields, scope: "market_context.metrics"}
	m := &domain.RiskMetrics{
		ValueAtRisk: v.number("value_at_risk", "var"),
		CVaR:        v.number("cvar"),
		LogReturn:   v.number("log_returns", "log_return"),
	}
	if v.err != nil {
		return nil, v.err
	}
	return m, nil
}

func decodeCompany(raw json.RawMessage) (*domain.CompanyProfile, error) {
	fields, err := object(raw, "market_context.company")
	if err != nil {
		return nil, err
	}
	v := &fieldReader{fields: fields, scope: "market_context.company"}
	p := &domain.CompanyProfile{
		Name:          v.text("name"),
		Sector:        v.text("sector"),
		Industry:      v.text("industry"),
		PERatio:       v.number("pe_ratio"),
		EPS:           v.number("eps"),
		DividendYield: v.nonNegative("dividend_yield"),
		High52Week:    v.nonNegative("fifty_two_week_high"),
		Low52Week:     v.nonNegative("fifty_two_week_low"),
		Description:   v.text("description"),
	}
	if v.err != nil {
		return nil, v.err
	}
	return p, nil
}

func object(raw json.RawMessage, scope string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidData, scope)
	}
	return fields, nil
}

// fieldReader decodes optional fields from a JSON object, keeping the first
// validation error. Missing and null fields decode to zero values.
type fieldReader struct {
	fields map[string]json.RawMessage
	scope  string
	err    error
}

// lookup returns the first present, non-null key among names.
func (r *fieldReader) lookup(names ...string) (string, json.RawMessage, bool) {
	for _, name := range names {
		if raw, ok := r.fields[name]; ok && !isNull(raw) {
			return name, raw, true
		}
	}
	return "", nil, false
}

func (r *fieldReader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s.%s: %s", ErrInvalidData, r.scope, key, want)
	}
}

func (r *fieldReader) text(names ...string) string {
	key, raw, ok := r.lookup(names...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.fail(key, "expected a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (r *fieldReader) number(names ...string) float64 {
	key, raw, ok := r.lookup(names...)
	if !ok {
		return 0
	}
	f, ok := util.ParseNumber(raw)
	if !ok {
		r.fail(key, "expected a finite number")
		return 0
	}
	return f
}

func (r *fieldReader) nonNegative(names ...string) float64 {
	key, raw, ok := r.lookup(names...)
	if !ok {
		return 0
	}
	f, ok := util.ParseNumber(raw)
	if !ok || f < 0 {
		r.fail(key, "expected a non-negative number")
		return 0
	}
	return f
}

func (r *fieldReader) timestamp(names ...string) time.Time {
	key, raw, ok := r.lookup(names...)
	if !ok {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.fail(key, "expected an ISO-8601 string")
		return time.Time{}
	}
	t, ok := util.ParseTimestamp(s)
	if !ok {
		r.fail(key, "expected an ISO-8601 timestamp")
		return time.Time{}
	}
	return t
}
