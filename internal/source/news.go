package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"robin/internal/domain"
)

const (
	newsLookback = 7 * 24 * time.Hour
	newsLimit    = 10
)

// Knowledge fetches recent news for symbol and returns one snippet per
// article, most recent first.
func (a *Alpaca) Knowledge(ctx context.Context, symbol string) ([]domain.KnowledgeSnippet, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	end := a.now()
	articles, err := a.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      end.Add(-newsLookback),
		End:        end,
		TotalLimit: newsLimit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("GetNews %s: %w", symbol, err)
	}
	return newsSnippets(articles), nil
}

func newsSnippets(articles []marketdata.News) []domain.KnowledgeSnippet {
	out := make([]domain.KnowledgeSnippet, 0, len(articles))
	for _, n := range articles {
		text := strings.TrimSpace(n.Headline)
		if summary := strings.TrimSpace(n.Summary); summary != "" {
			text += ": " + summary
		}
		if text == "" {
			continue
		}
		out = append(out, domain.KnowledgeSnippet{
			Text:   text,
			Source: "alpaca news " + n.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	return out
}
