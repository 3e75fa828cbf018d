// Package brapi is a client for the brapi.dev B3 quote API.
package brapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/dvloznov/carteira/internal/providers"
)

// DefaultBaseURL is the public brapi endpoint.
const DefaultBaseURL = "https://brapi.dev/api"

// Defaults applied to quote requests.
const (
	DefaultRange    = "1mo"
	DefaultInterval = "1d"
	searchLimit     = 10
)

// ErrMissingAPIKey is returned when no token is configured.
var ErrMissingAPIKey = errors.New("BRAPI_API_KEY is not configured.")

// APIError is a provider status mapped to a client-facing message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls brapi.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client. Empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = providers.NewHTTPClient()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// Search lists symbols matching q. The response's stocks array is returned
// as-is, or an empty list when absent.
func (c *Client) Search(ctx context.Context, q string) (interface{}, error) {
	params := url.Values{}
	params.Set("search", q)
	params.Set("limit", strconv.Itoa(searchLimit))

	body, err := c.get(ctx, "quote/list", params)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	stocks, err := jsonpath.Get("$.stocks", body)
	if err != nil || stocks == nil {
		return []interface{}{}, nil
	}
	return stocks, nil
}

// Quote returns the first result for symbol. A trailing ".SA" is dropped
// because brapi only knows bare B3 tickers.
func (c *Client) Quote(ctx context.Context, symbol, rangeKey, interval string) (interface{}, error) {
	if rangeKey == "" {
		rangeKey = DefaultRange
	}
	if interval == "" {
		interval = DefaultInterval
	}
	params := url.Values{}
	params.Set("range", rangeKey)
	params.Set("interval", interval)

	ticker := url.PathEscape(strings.ReplaceAll(symbol, ".SA", ""))
	body, err := c.get(ctx, "quote/"+ticker, params)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}

	result, err := jsonpath.Get("$.results[0]", body)
	if err != nil || result == nil {
		return map[string]interface{}{}, nil
	}
	if list, ok := result.([]interface{}); ok {
		if len(list) == 0 {
			return map[string]interface{}{}, nil
		}
		return list[0], nil
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (interface{}, error) {
	if c.token == "" {
		return nil, ErrMissingAPIKey
	}
	params.Set("token", c.token)

	var body interface{}
	err := providers.GetJSON(ctx, c.http, "brapi", c.baseURL+"/"+endpoint+"?"+params.Encode(), nil, &body)
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Symbol not found"}
		case http.StatusForbidden:
			return nil, &APIError{StatusCode: http.StatusForbidden, Message: "Forbidden. Check your Brapi API plan and permissions."}
		}
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}
