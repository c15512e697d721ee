package analytics

import (
	"sort"
	"strings"

	"robin/internal/domain"
	"robin/internal/util"
)

// ChainSummary aggregates a whole chain across expirations and sides.
type ChainSummary struct {
	Underlying        string
	Contracts         int
	Calls             int
	Puts              int
	TotalSize         int64
	TotalVolume       int64
	TotalOpenInterest int64
	// PutCallRatio is puts/calls by contract count, 0 when there are no calls.
	PutCallRatio float64
	Expirations  []string
}

// Summarize computes chain-wide metrics. Unparseable sizes, volumes and open
// interest count as zero.
func Summarize(chain *domain.OptionsChain) ChainSummary {
	s := ChainSummary{Expirations: Expirations(chain)}
	if chain == nil {
		return s
	}
	s.Underlying = chain.Underlying
	for _, c := range chain.Contracts {
		s.Contracts++
		switch c.Type {
		case domain.OptionTypeCall:
			s.Calls++
		case domain.OptionTypePut:
			s.Puts++
		}
		s.TotalSize += util.ParseCount(c.Size)
		s.TotalVolume += util.ParseCount(c.Volume)
		s.TotalOpenInterest += util.ParseCount(c.OpenInterest)
	}
	if s.Calls > 0 {
		s.PutCallRatio = float64(s.Puts) / float64(s.Calls)
	}
	return s
}

// Expirations returns the distinct, non-empty expiration dates of the chain
// in ascending order. ISO-8601 dates sort chronologically as strings.
func Expirations(chain *domain.OptionsChain) []string {
	if chain.Len() == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, c := range chain.Contracts {
		exp := strings.TrimSpace(c.ExpirationDate)
		if exp == "" {
			continue
		}
		if _, ok := seen[exp]; ok {
			continue
		}
		seen[exp] = struct{}{}
		out = append(out, exp)
	}
	sort.Strings(out)
	return out
}
