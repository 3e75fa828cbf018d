package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// Outcome is the result of refreshing one symbol.
type Outcome string

const (
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Options configures a refresh run.
type Options struct {
	// MaxSymbols caps how many symbols a run touches. Zero means DefaultMaxSymbols.
	MaxSymbols int
	// Range is the document range to refresh. Empty means DefaultRange.
	Range string
}

// DefaultMaxSymbols keeps a run within third-party rate limits.
const DefaultMaxSymbols = 50

// Summary tallies a refresh run. Skipped symbols were fresh and count as successes.
type Summary struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// Refresher re-fetches stale historical documents.
type Refresher struct {
	docs     Store
	fetcher  Fetcher
	recorder store.RunRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewRefresher creates a refresher. A nil recorder disables run auditing.
func NewRefresher(docs Store, fetcher Fetcher, recorder store.RunRecorder, log zerolog.Logger) *Refresher {
	if recorder == nil {
		recorder = store.NopRunRecorder{}
	}
	return &Refresher{
		docs:     docs,
		fetcher:  fetcher,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// RefreshSymbol refreshes one document. Unless force is set, a fresh
// document is left untouched. A failed fetch still overwrites the document
// with an error status.
func (r *Refresher) RefreshSymbol(ctx context.Context, symbol, rangeKey string, force bool) (Outcome, *Document, error) {
	log := r.log.With().Str("symbol", symbol).Str("range", rangeKey).Logger()

	existing, err := r.docs.GetDocument(ctx, symbol, rangeKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	case err != nil:
		return OutcomeFailed, nil, fmt.Errorf("RefreshSymbol: loading %s: %w", DocID(symbol, rangeKey), err)
	}

	if existing != nil && !force && !existing.IsStale(r.now()) {
		log.Debug().Str("fetched_at", existing.FetchedAt).Msg("Document is fresh, skipping")
		return OutcomeSkipped, existing, nil
	}

	points, fetchErr := r.fetcher.FetchHistory(ctx, symbol, rangeKey)
	var doc *Document
	if fetchErr != nil {
		doc = NewErrorDocument(symbol, rangeKey, fetchErr, r.now())
	} else {
		doc = NewCompletedDocument(symbol, rangeKey, points, r.now())
	}

	if err := r.docs.PutDocument(ctx, doc); err != nil {
		return OutcomeFailed, doc, fmt.Errorf("RefreshSymbol: saving %s: %w", doc.ID(), err)
	}

	if fetchErr != nil {
		log.Warn().Err(fetchErr).Msg("Fetch failed, stored error document")
		return OutcomeFailed, doc, fmt.Errorf("RefreshSymbol: fetching %s: %w", symbol, fetchErr)
	}

	log.Info().Int("points", len(points)).Msg("Document refreshed")
	return OutcomeRefreshed, doc, nil
}

// Run refreshes every stored symbol, sequentially and in sorted order, up
// to opts.MaxSymbols.
func (r *Refresher) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.MaxSymbols <= 0 {
		opts.MaxSymbols = DefaultMaxSymbols
	}
	if opts.Range == "" {
		opts.Range = DefaultRange
	}

	symbols, err := r.docs.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: listing symbols: %w", err)
	}
	if len(symbols) > opts.MaxSymbols {
		r.log.Warn().
			Int("found", len(symbols)).
			Int("max_symbols", opts.MaxSymbols).
			Msg("Limiting refresh to the first symbols")
		symbols = symbols[:opts.MaxSymbols]
	}

	runID, err := r.recorder.StartRun(ctx, store.RunKindHistoryRefresh, opts.Range, 0)
	if err != nil {
		r.log.Warn().Err(err).Msg("Could not record refresh run start")
	}

	summary := &Summary{Total: len(symbols)}
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			r.recorder.MarkRunFailed(ctx, runID, err)
			return summary, fmt.Errorf("Run: interrupted after %d of %d symbols: %w", i, len(symbols), err)
		}

		outcome, _, err := r.RefreshSymbol(ctx, symbol, opts.Range, false)
		switch outcome {
		case OutcomeSkipped:
			summary.Skipped++
			summary.Succeeded++
		case OutcomeRefreshed:
			summary.Succeeded++
		default:
			summary.Failed++
			if summary.Failures == nil {
				summary.Failures = make(map[string]string)
			}
			summary.Failures[symbol] = err.Error()
		}
	}

	if summary.Failed > 0 {
		r.recorder.MarkRunFailed(ctx, runID, fmt.Errorf("%d of %d symbols failed", summary.Failed, summary.Total))
	} else if err := r.recorder.MarkRunSucceeded(ctx, runID, store.RunStats{
		ItemsTotal:   summary.Total,
		ItemsCreated: summary.Succeeded - summary.Skipped,
	}); err != nil {
		r.log.Warn().Err(err).Msg("Could not record refresh run success")
	}

	return summary, nil
}
