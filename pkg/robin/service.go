package robin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// InitializeResponse is the reply of POST /initialize_ticker. The context
// blobs are left raw; the normalize package validates them.
type InitializeResponse struct {
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	MarketContext  json.RawMessage `json:"market_context"`
	OptionsContext json.RawMessage `json:"options_context"`
}

// QueryResponse is the reply of POST /query.
type QueryResponse struct {
	Status           string          `json:"status"`
	Response         string          `json:"response"`
	MarketContext    json.RawMessage `json:"market_context"`
	KnowledgeContext json.RawMessage `json:"knowledge_context"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type initializeRequest struct {
	Symbol string `json:"symbol"`
}

type queryRequest struct {
	Query  string `json:"query"`
	Symbol string `json:"symbol,omitempty"`
}

// InitializeTicker asks the service to load market and options data for
// symbol.
func (c *Client) InitializeTicker(ctx context.Context, symbol string) (*InitializeResponse, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("robin: symbol is required")
	}
	var out InitializeResponse
	err := c.do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/initialize_ticker",
		Body:   initializeRequest{Symbol: symbol},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Query sends a free-form question, optionally scoped to symbol.
func (c *Client) Query(ctx context.Context, query, symbol string) (*QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("robin: query is required")
	}
	var out QueryResponse
	err := c.do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/query",
		Body:   queryRequest{Query: query, Symbol: strings.ToUpper(strings.TrimSpace(symbol))},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports the service's component status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, Request{Method: http.MethodGet, Path: "/health"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
