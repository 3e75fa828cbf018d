package history

import (
	"fmt"
	"strings"
	"time"
)

// Collection is the document namespace shared by every store backend.
const Collection = "historical-data"

// DefaultRange is the range refreshed by the scheduled job.
const DefaultRange = "max"

// FreshnessWindow is how long a completed document is served without refetching.
const FreshnessWindow = 12 * time.Hour

// Document statuses.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// PricePoint is one OHLCV bar. Date is a unix timestamp in seconds.
type PricePoint struct {
	Date   int64   `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Document is the cached price history for one symbol and range.
type Document struct {
	Status    string       `json:"status"`
	Data      []PricePoint `json:"data"`
	FetchedAt string       `json:"fetchedAt,omitempty"`
	Symbol    string       `json:"symbol"`
	Range     string       `json:"range"`
	Error     string       `json:"error,omitempty"`
}

// DocID returns the storage key "{symbol}_{range}".
func DocID(symbol, rangeKey string) string {
	return symbol + "_" + rangeKey
}

// ID returns the document's storage key.
func (d *Document) ID() string {
	return DocID(d.Symbol, d.Range)
}

// IsStale reports whether d must be refetched at now: errored documents,
// missing or unparseable fetch times, and anything older than FreshnessWindow.
func (d *Document) IsStale(now time.Time) bool {
	if d.Status == StatusError {
		return true
	}
	if d.FetchedAt == "" {
		return true
	}
	fetched, err := time.Parse(time.RFC3339, d.FetchedAt)
	if err != nil {
		return true
	}
	return now.Sub(fetched) > FreshnessWindow
}

// NewCompletedDocument builds a successful document stamped at now.
func NewCompletedDocument(symbol, rangeKey string, points []PricePoint, now time.Time) *Document {
	if points == nil {
		points = []PricePoint{}
	}
	return &Document{
		Status:    StatusCompleted,
		Data:      points,
		FetchedAt: now.UTC().Format(time.RFC3339),
		Symbol:    symbol,
		Range:     rangeKey,
	}
}

// NewErrorDocument builds a failed document with empty data so the next run retries it.
func NewErrorDocument(symbol, rangeKey string, fetchErr error, now time.Time) *Document {
	return &Document{
		Status:    StatusError,
		Data:      []PricePoint{},
		FetchedAt: now.UTC().Format(time.RFC3339),
		Symbol:    symbol,
		Range:     rangeKey,
		Error:     fetchErr.Error(),
	}
}

// ValidRanges lists the client-facing ranges accepted by the fetcher.
var ValidRanges = []string{"1w", "2w", "1mo", "3mo", "6mo", "1y", "max"}

// ValidateRange returns an error for ranges the fetcher does not understand.
func ValidateRange(rangeKey string) error {
	for _, r := range ValidRanges {
		if r == rangeKey {
			return nil
		}
	}
	return fmt.Errorf("invalid range %q (valid: %s)", rangeKey, strings.Join(ValidRanges, ", "))
}
