package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"robin/internal/analytics"
	"robin/internal/domain"
)

// RenderMarket writes a one-screen summary of a market context.
func RenderMarket(w io.Writer, mc *domain.MarketContext, now time.Time) {
	if mc == nil {
		fmt.Fprintln(w, "no market context")
		return
	}
	s := mc.Snapshot
	fmt.Fprintf(w, "%s  %s", s.Symbol, FormatPrice(s.CurrentPrice))
	if n := mc.Series.Len(); n >= 2 {
		fmt.Fprintf(w, "  %s", FormatChange(mc.Series.Prices[n-2], mc.Series.Prices[n-1]))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "bid %s  ask %s  vol %s  cap %s  (%s)\n",
		FormatPrice(s.Bid), FormatPrice(s.Ask), FormatVolume(s.Volume),
		FormatMarketCap(s.MarketCap), FormatAge(s.Timestamp, now))

	if c := mc.Company; c != nil {
		fmt.Fprintf(w, "%s", c.Name)
		if c.Sector != "" {
			fmt.Fprintf(w, "  [%s]", c.Sector)
		}
		if c.PERatio != 0 {
			fmt.Fprintf(w, "  P/E %.1f", c.PERatio)
		}
		if c.High52Week != 0 || c.Low52Week != 0 {
			fmt.Fprintf(w, "  52w %s-%s", FormatPrice(c.Low52Week), FormatPrice(c.High52Week))
		}
		fmt.Fprintln(w)
	}
	if m := mc.Metrics; m != nil {
		fmt.Fprintf(w, "VaR(95%%) %.2f%%  CVaR %.2f%%  last log return %.2f%%\n",
			m.ValueAtRisk*100, m.CVaR*100, m.LogReturn*100)
	}
	if date, price, volume, ok := mc.Series.Last(); ok {
		fmt.Fprintf(w, "daily: %d points, last %s close %s vol %s\n",
			mc.Series.Len(), date, FormatPrice(price), FormatVolume(volume))
	}
}

// RenderOptions writes the display set for one side as a table.
func RenderOptions(w io.Writer, side domain.OptionType, contracts []domain.DisplayContract) error {
	if len(contracts) == 0 {
		_, err := fmt.Fprintf(w, "no %s contracts at the nearest expiration\n", side)
		return err
	}
	fmt.Fprintf(w, "%ss expiring %s\n", strings.ToUpper(string(side[:1]))+string(side[1:]), contracts[0].ExpirationDate)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STRIKE\tLAST\tVOL\tOI\tITM\tINTRINSIC\tTIME VALUE\t")
	for _, c := range contracts {
		itm := ""
		if c.IsITM {
			itm = "*"
		}
		fmt.Fprintf(tw, "%.2f\t%.2f\t%s\t%s\t%s\t%.2f\t%.2f\t\n",
			c.Strike, c.LastPrice, FormatInt(c.Volume), FormatInt(c.OpenInterestN),
			itm, c.IntrinsicValue, c.TimeValue)
	}
	return tw.Flush()
}

// RenderSeries writes an archived daily series as a table, oldest first.
func RenderSeries(w io.Writer, symbol string, series *domain.DailySeries) error {
	if series.Len() == 0 {
		_, err := fmt.Fprintf(w, "no archived series for %s\n", symbol)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tCLOSE\tCHANGE\tVOLUME\t")
	for i, date := range series.Dates {
		change := ""
		if i > 0 {
			change = FormatChange(series.Prices[i-1], series.Prices[i])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			date, FormatPrice(series.Prices[i]), change, FormatVolume(series.Volumes[i]))
	}
	return tw.Flush()
}

// RenderSummary writes chain-wide metrics.
func RenderSummary(w io.Writer, s analytics.ChainSummary) {
	fmt.Fprintf(w, "%s: %s contracts (%d calls, %d puts), put/call %.2f, volume %s, open interest %s\n",
		s.Underlying, FormatInt(int64(s.Contracts)), s.Calls, s.Puts, s.PutCallRatio,
		FormatInt(s.TotalVolume), FormatInt(s.TotalOpenInterest))
	if len(s.Expirations) > 0 {
		fmt.Fprintf(w, "expirations: %s\n", strings.Join(s.Expirations, ", "))
	}
}

// RenderMessage writes one conversation entry.
func RenderMessage(w io.Writer, m domain.Message, now time.Time) {
	fmt.Fprintf(w, "[%s] %s (%s)\n", m.Role, m.Content, FormatAge(m.CreatedAt, now))
}

// RenderKnowledge writes retrieved knowledge snippets as a bullet list.
func RenderKnowledge(w io.Writer, snippets []domain.KnowledgeSnippet) {
	for _, s := range snippets {
		if s.Source != "" {
			fmt.Fprintf(w, "  - %s (%s)\n", s.Text, s.Source)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", s.Text)
	}
}
