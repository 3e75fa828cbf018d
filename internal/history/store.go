package history

import (
	"context"
)

// Store persists historical documents keyed by DocID. GetDocument returns
// store.ErrNotFound when the document does not exist.
type Store interface {
	GetDocument(ctx context.Context, symbol, rangeKey string) (*Document, error)
	PutDocument(ctx context.Context, doc *Document) error
	// ListSymbols returns the sorted unique symbols of all stored documents.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Fetcher retrieves a fresh price series from a market-data provider.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol, rangeKey string) ([]PricePoint, error)
}
