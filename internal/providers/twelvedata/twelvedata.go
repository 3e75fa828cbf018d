// Package twelvedata is a client for the Twelve Data market API. The free
// plan allows eight calls per minute, so the client throttles itself.
package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/dvloznov/carteira/internal/providers"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Twelve Data endpoint.
const DefaultBaseURL = "https://api.twelvedata.com"

// DefaultMinInterval spaces calls at 60s / 8.
const DefaultMinInterval = 7500 * time.Millisecond

// ErrMissingAPIKey is returned when no key is configured.
var ErrMissingAPIKey = errors.New("TWELVEDATA_API_KEY is not configured.")

// APIError is an error reported in the body of a 200 response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvedata: %d: %s", e.Code, e.Message)
}

// Client calls Twelve Data. Calls made through one Client are at least
// minInterval apart; separate processes are not coordinated.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. A non-positive minInterval selects DefaultMinInterval.
func NewClient(baseURL, apiKey string, minInterval time.Duration, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if httpClient == nil {
		httpClient = providers.NewHTTPClient()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Search returns the symbols matching q (the response's data array).
func (c *Client) Search(ctx context.Context, q string) (interface{}, error) {
	params := url.Values{}
	params.Set("symbol", q)
	params.Set("outputsize", "10")

	body, err := c.get(ctx, "symbol_search", params)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	data, err := jsonpath.Get("$.data", body)
	if err != nil || data == nil {
		return []interface{}{}, nil
	}
	return data, nil
}

// Quote returns the latest quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol, rangeKey, interval string) (interface{}, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if interval != "" {
		params.Set("interval", interval)
	}

	body, err := c.get(ctx, "quote", params)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (interface{}, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("twelvedata: waiting for rate limiter: %w", err)
	}
	params.Set("apikey", c.apiKey)

	var body interface{}
	if err := providers.GetJSON(ctx, c.http, "twelvedata", c.baseURL+"/"+endpoint+"?"+params.Encode(), nil, &body); err != nil {
		return nil, err
	}
	if status, _ := jsonpath.Get("$.status", body); status == "error" {
		apiErr := &APIError{}
		if code, ok := mustGet("$.code", body).(float64); ok {
			apiErr.Code = int(code)
		}
		apiErr.Message, _ = mustGet("$.message", body).(string)
		return nil, apiErr
	}
	return body, nil
}

func mustGet(path string, body interface{}) interface{} {
	v, err := jsonpath.Get(path, body)
	if err != nil {
		return nil
	}
	return v
}
