// Package bcb reads time series from the Banco Central do Brasil SGS API.
package bcb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/providers"
)

// DefaultBaseURL is the public SGS endpoint.
const DefaultBaseURL = "https://api.bcb.gov.br/dados/serie"

// SGS series ids of the indexes shown on the dashboard.
const (
	SeriesCDI   = 12
	SeriesSELIC = 4189
	SeriesIPCA  = 433
	SeriesIGPM  = 189
)

// NamedSeries maps dashboard index names to series ids.
var NamedSeries = map[string]int{
	"cdi":   SeriesCDI,
	"selic": SeriesSELIC,
	"ipca":  SeriesIPCA,
	"igpm":  SeriesIGPM,
}

// Periodicities accepted by SeriesFor.
const (
	PeriodicityDaily   = "daily"
	PeriodicityMonthly = "monthly"
)

// dateLayout is the dd/mm/yyyy format the API expects.
const dateLayout = "02/01/2006"

// ErrNoData is returned when the API answers with an empty series.
var ErrNoData = errors.New("bcb: series returned no data")

// Observation is one point of a series. Field names follow the API.
type Observation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// Client calls the SGS API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client. Empty baseURL selects DefaultBaseURL; a nil
// httpClient selects one with the default provider timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = providers.NewHTTPClient()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Latest returns the most recent observation of a series.
func (c *Client) Latest(ctx context.Context, seriesID int) (*Observation, error) {
	u := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/1?formato=json", c.baseURL, seriesID)
	var obs []Observation
	if err := providers.GetJSON(ctx, c.http, "bcb", u, nil, &obs); err != nil {
		return nil, fmt.Errorf("Latest: series %d: %w", seriesID, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("Latest: series %d: %w", seriesID, ErrNoData)
	}
	return &obs[0], nil
}

// Series returns the observations between start and end inclusive.
func (c *Client) Series(ctx context.Context, seriesID int, start, end time.Time) ([]Observation, error) {
	q := url.Values{}
	q.Set("formato", "json")
	q.Set("dataInicial", start.Format(dateLayout))
	q.Set("dataFinal", end.Format(dateLayout))
	u := fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", c.baseURL, seriesID, q.Encode())

	var obs []Observation
	if err := providers.GetJSON(ctx, c.http, "bcb", u, nil, &obs); err != nil {
		return nil, fmt.Errorf("Series: series %d: %w", seriesID, err)
	}
	if obs == nil {
		obs = []Observation{}
	}
	return obs, nil
}

// DailySeries widens the window by five days on each side so that
// weekends and holidays at the edges still have a value.
func (c *Client) DailySeries(ctx context.Context, seriesID int, start, end time.Time) ([]Observation, error) {
	return c.Series(ctx, seriesID, start.AddDate(0, 0, -5), end.AddDate(0, 0, 5))
}

// MonthlySeries widens the window by two months on each side.
func (c *Client) MonthlySeries(ctx context.Context, seriesID int, start, end time.Time) ([]Observation, error) {
	return c.Series(ctx, seriesID, start.AddDate(0, -2, 0), end.AddDate(0, 2, 0))
}

// SeriesFor dispatches on periodicity. Anything but "daily" is monthly.
func (c *Client) SeriesFor(ctx context.Context, seriesID int, start, end time.Time, periodicity string) ([]Observation, error) {
	if strings.EqualFold(periodicity, PeriodicityDaily) {
		return c.DailySeries(ctx, seriesID, start, end)
	}
	return c.MonthlySeries(ctx, seriesID, start, end)
}

// Indexes fetches the latest value of every named series. A failing series
// fails the whole call.
func (c *Client) Indexes(ctx context.Context) (map[string]Observation, error) {
	out := make(map[string]Observation, len(NamedSeries))
	for name, id := range NamedSeries {
		obs, err := c.Latest(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("Indexes: %s: %w", name, err)
		}
		out[name] = *obs
	}
	return out, nil
}
