// Package market fronts the quote and central-bank providers with an
// in-process cache.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/providers/bcb"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Cache lifetimes per kind of lookup.
const (
	RatesTTL  = time.Hour
	SearchTTL = 15 * time.Minute
	QuoteTTL  = 5 * time.Minute
)

// Provider names accepted by Search and Quote.
const (
	ProviderBrapi      = "brapi"
	ProviderTwelveData = "twelvedata"
)

// ErrUnknownProvider is returned for a provider name with no registered client.
var ErrUnknownProvider = errors.New("unknown provider")

// QuoteProvider is implemented by the brapi and Twelve Data clients.
type QuoteProvider interface {
	Search(ctx context.Context, q string) (interface{}, error)
	Quote(ctx context.Context, symbol, rangeKey, interval string) (interface{}, error)
}

// RatesProvider is the subset of the BCB client the service uses.
type RatesProvider interface {
	Indexes(ctx context.Context) (map[string]bcb.Observation, error)
	SeriesFor(ctx context.Context, seriesID int, start, end time.Time, periodicity string) ([]bcb.Observation, error)
}

// QuoteRequest selects a quote.
type QuoteRequest struct {
	Provider string
	Symbol   string
	Range    string
	Interval string
}

// Service caches provider lookups. Errors are never cached.
type Service struct {
	quotes map[string]QuoteProvider
	rates  RatesProvider
	cache  *cache.Cache
	log    zerolog.Logger
}

// NewService creates a service. quotes is keyed by provider name and an
// empty name in a request selects ProviderBrapi.
func NewService(quotes map[string]QuoteProvider, rates RatesProvider, log zerolog.Logger) *Service {
	return &Service{
		quotes: quotes,
		rates:  rates,
		cache:  cache.New(SearchTTL, 30*time.Minute),
		log:    log,
	}
}

func (s *Service) provider(name string) (QuoteProvider, string, error) {
	if name == "" {
		name = ProviderBrapi
	}
	name = strings.ToLower(name)
	p, ok := s.quotes[name]
	if !ok {
		return nil, name, fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	return p, name, nil
}

// Search looks up symbols matching q.
func (s *Service) Search(ctx context.Context, providerName, q string) (interface{}, error) {
	p, name, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	key := "search|" + name + "|" + strings.ToUpper(q)
	return s.cached(key, SearchTTL, func() (interface{}, error) {
		return p.Search(ctx, q)
	})
}

// Quote returns the provider's quote for req.Symbol.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (interface{}, error) {
	p, name, err := s.provider(req.Provider)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{"quote", name, strings.ToUpper(req.Symbol), req.Range, req.Interval}, "|")
	return s.cached(key, QuoteTTL, func() (interface{}, error) {
		return p.Quote(ctx, req.Symbol, req.Range, req.Interval)
	})
}

// Indexes returns the latest CDI, SELIC, IPCA and IGP-M values.
func (s *Service) Indexes(ctx context.Context) (map[string]bcb.Observation, error) {
	v, err := s.cached("indexes", RatesTTL, func() (interface{}, error) {
		return s.rates.Indexes(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]bcb.Observation), nil
}

// Series returns a buffered BCB series. Historical windows are cached like rates.
func (s *Service) Series(ctx context.Context, seriesID int, start, end time.Time, periodicity string) ([]bcb.Observation, error) {
	key := fmt.Sprintf("series|%d|%s|%s|%s", seriesID, start.Format("2006-01-02"), end.Format("2006-01-02"), strings.ToLower(periodicity))
	v, err := s.cached(key, RatesTTL, func() (interface{}, error) {
		return s.rates.SeriesFor(ctx, seriesID, start, end, periodicity)
	})
	if err != nil {
		return nil, err
	}
	return v.([]bcb.Observation), nil
}

func (s *Service) cached(key string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := s.cache.Get(key); ok {
		s.log.Debug().Str("key", key).Msg("Cache hit")
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, v, ttl)
	return v, nil
}
