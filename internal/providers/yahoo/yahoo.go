// Package yahoo fetches historical OHLCV series from the Yahoo Finance
// chart endpoint.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/providers"
	"golang.org/x/net/publicsuffix"
)

// DefaultBaseURL is the public chart endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo rejects requests without a browser-like User-Agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// rangeParams maps client ranges to Yahoo's range and interval.
var rangeParams = map[string][2]string{
	"1w":  {"1mo", "1d"},
	"2w":  {"1mo", "1d"},
	"1mo": {"1mo", "1d"},
	"3mo": {"3mo", "1d"},
	"6mo": {"6mo", "1d"},
	"1y":  {"1y", "1d"},
	"max": {"max", "1wk"},
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client implements history.Fetcher.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a cookie jar, as Yahoo sets consent
// cookies on first contact. Empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("NewClient: cookie jar: %w", err)
	}
	httpClient := providers.NewHTTPClient()
	httpClient.Jar = jar
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// NormalizeSymbol appends the B3 ".SA" suffix to short bare tickers.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) <= 6 && !strings.Contains(symbol, ".") {
		return symbol + ".SA"
	}
	return symbol
}

// FetchHistory implements history.Fetcher. Points with a null close are skipped.
func (c *Client) FetchHistory(ctx context.Context, symbol, rangeKey string) ([]history.PricePoint, error) {
	params, ok := rangeParams[rangeKey]
	if !ok {
		return nil, history.ValidateRange(rangeKey)
	}

	q := url.Values{}
	q.Set("range", params[0])
	q.Set("interval", params[1])
	u := c.baseURL + "/" + url.PathEscape(NormalizeSymbol(symbol)) + "?" + q.Encode()

	var resp chartResponse
	header := http.Header{"User-Agent": []string{userAgent}}
	if err := providers.GetJSON(ctx, c.http, "yahoo", u, header, &resp); err != nil {
		return nil, fmt.Errorf("FetchHistory: %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("FetchHistory: %s: %s", symbol, resp.Chart.Error.Description)
	}

	points := toPoints(resp)
	if len(points) == 0 {
		return nil, fmt.Errorf("No data found for symbol %s", symbol)
	}
	return points, nil
}

func toPoints(resp chartResponse) []history.PricePoint {
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil
	}
	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	at := func(vs []*float64, i int) float64 {
		if i < len(vs) && vs[i] != nil {
			return *vs[i]
		}
		return 0
	}

	points := make([]history.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		p := history.PricePoint{
			Date:  ts,
			Open:  at(quote.Open, i),
			High:  at(quote.High, i),
			Low:   at(quote.Low, i),
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			p.Volume = *quote.Volume[i]
		}
		points = append(points, p)
	}
	return points
}

var _ history.Fetcher = (*Client)(nil)
