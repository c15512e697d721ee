package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"robin/internal/domain"
	"robin/internal/util"
)

// OCCSymbol is a parsed OCC option symbol: root, expiry YYMMDD, C or P and
// the strike times 1000 in eight digits, e.g. AAPL240315C00180000.
type OCCSymbol struct {
	Symbol     string
	Root       string
	Expiration time.Time
	Type       domain.OptionType
	Strike     decimal.Decimal
}

const occSuffixLen = 6 + 1 + 8

// ParseOCCSymbol parses an OCC option symbol. Whitespace padding of the root
// is tolerated.
func ParseOCCSymbol(s string) (OCCSymbol, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(compact) <= occSuffixLen {
		return OCCSymbol{}, fmt.Errorf("occ symbol %q: too short", s)
	}
	suffix := compact[len(compact)-occSuffixLen:]
	root := compact[:len(compact)-occSuffixLen]
	if len(root) > 6 {
		return OCCSymbol{}, fmt.Errorf("occ symbol %q: root %q longer than 6", s, root)
	}

	exp, err := time.Parse("060102", suffix[:6])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("occ symbol %q: expiration: %w", s, err)
	}

	var typ domain.OptionType
	switch suffix[6] {
	case 'C':
		typ = domain.OptionTypeCall
	case 'P':
		typ = domain.OptionTypePut
	default:
		return OCCSymbol{}, fmt.Errorf("occ symbol %q: unknown type %q", s, suffix[6])
	}

	milli, err := strconv.ParseInt(suffix[7:], 10, 64)
	if err != nil || milli < 0 {
		return OCCSymbol{}, fmt.Errorf("occ symbol %q: strike %q", s, suffix[7:])
	}

	return OCCSymbol{
		Symbol:     compact,
		Root:       root,
		Expiration: exp,
		Type:       typ,
		Strike:     decimal.New(milli, -3),
	}, nil
}

// Contract converts the symbol into a service-shaped contract. Alpaca option
// contracts are American style with a 100-share multiplier.
func (o OCCSymbol) Contract() domain.OptionContract {
	return domain.OptionContract{
		ID:               o.Symbol,
		Symbol:           o.Symbol,
		Status:           "active",
		Tradable:         true,
		ExpirationDate:   o.Expiration.Format(util.DateLayout),
		UnderlyingSymbol: o.Root,
		Type:             o.Type,
		Style:            "american",
		StrikePrice:      o.Strike.String(),
		Size:             "100",
	}
}
