// Package analytics derives display-ready views from an options chain. It
// performs no I/O.
package analytics

import (
	"math"
	"sort"
	"strings"

	"robin/internal/domain"
	"robin/internal/util"
)

const (
	// DisplayWindow caps the number of contracts shown per side.
	DisplayWindow = 5
	// windowNeighbours is how many strikes are kept on each side of the
	// contract closest to the reference price.
	windowNeighbours = 2
)

// ParseSide maps a user-facing side ("call", "calls", "put", "puts") onto an
// OptionType. ok is false for anything else.
func ParseSide(s string) (domain.OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "calls", "c":
		return domain.OptionTypeCall, true
	case "put", "puts", "p":
		return domain.OptionTypePut, true
	default:
		return "", false
	}
}

// SelectDisplaySet picks the contracts of the given side at the nearest
// expiration, ordered by strike (ascending for calls, descending for puts)
// and enriched with moneyness metrics.
//
// When more than DisplayWindow contracts match, the result is a skew window:
// the contract whose strike is closest to referencePrice plus up to two
// nearest strikes above and below it. An empty or non-matching chain yields
// an empty slice.
func SelectDisplaySet(chain *domain.OptionsChain, referencePrice float64, side domain.OptionType) []domain.DisplayContract {
	out := []domain.DisplayContract{}
	if chain.Len() == 0 {
		return out
	}
	expirations := Expirations(chain)
	if len(expirations) == 0 {
		return out
	}
	nearest := expirations[0]

	for _, c := range chain.Contracts {
		if strings.TrimSpace(c.ExpirationDate) != nearest || c.Type != side {
			continue
		}
		out = append(out, parseContract(c))
	}
	if len(out) == 0 {
		return out
	}

	sortByStrike(out, side)
	if len(out) > DisplayWindow {
		out = skewWindow(out, referencePrice, side)
	}

	for i := range out {
		applyMoneyness(&out[i], referencePrice)
	}
	return out
}

// parseContract reads the contract's numbers. Volume falls back to Size for
// payloads that carry no traded volume.
func parseContract(c domain.OptionContract) domain.DisplayContract {
	volume := c.Volume
	if volume == "" {
		volume = c.Size
	}
	return domain.DisplayContract{
		OptionContract: c,
		Strike:         util.ParseDecimal(c.StrikePrice),
		LastPrice:      util.ParseDecimal(c.ClosePrice),
		Bid:            util.ParseDecimal(c.BidPrice),
		Ask:            util.ParseDecimal(c.AskPrice),
		Volume:         util.ParseCount(volume),
		OpenInterestN:  util.ParseCount(c.OpenInterest),
	}
}

func sortByStrike(cs []domain.DisplayContract, side domain.OptionType) {
	sort.SliceStable(cs, func(i, j int) bool {
		if side == domain.OptionTypePut {
			return cs[i].Strike > cs[j].Strike
		}
		return cs[i].Strike < cs[j].Strike
	})
}

// skewWindow expects cs sorted by sortByStrike.
func skewWindow(cs []domain.DisplayContract, ref float64, side domain.OptionType) []domain.DisplayContract {
	closest := 0
	for i := range cs {
		if math.Abs(cs[i].Strike-ref) < math.Abs(cs[closest].Strike-ref) {
			closest = i
		}
	}
	center := cs[closest].Strike

	var above, below []domain.DisplayContract
	for i, c := range cs {
		switch {
		case i == closest:
		case c.Strike > center:
			above = append(above, c)
		case c.Strike < center:
			below = append(below, c)
		}
	}
	byDistance := func(s []domain.DisplayContract) {
		sort.SliceStable(s, func(i, j int) bool {
			return math.Abs(s[i].Strike-center) < math.Abs(s[j].Strike-center)
		})
	}
	byDistance(above)
	byDistance(below)

	window := make([]domain.DisplayContract, 0, DisplayWindow)
	window = append(window, cs[closest])
	window = append(window, above[:min(windowNeighbours, len(above))]...)
	window = append(window, below[:min(windowNeighbours, len(below))]...)

	sortByStrike(window, side)
	if len(window) > DisplayWindow {
		window = window[:DisplayWindow]
	}
	return window
}

func applyMoneyness(c *domain.DisplayContract, ref float64) {
	if c.Type == domain.OptionTypeCall {
		c.IsITM = ref > c.Strike
	} else {
		c.IsITM = ref < c.Strike
	}
	if c.IsITM {
		c.IntrinsicValue = math.Abs(ref - c.Strike)
	}
	c.TimeValue = math.Max(0, c.LastPrice-c.IntrinsicValue)
}
