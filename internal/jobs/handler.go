package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/carteira/internal/history"
	"github.com/rs/zerolog"
)

// SymbolRefresher is the part of history.Refresher a fetch job needs.
type SymbolRefresher interface {
	RefreshSymbol(ctx context.Context, symbol, rangeKey string, force bool) (history.Outcome, *history.Document, error)
}

// NewFetchHistoryHandler returns a handler that force-refreshes the job's
// document. A failed fetch is still written as an error document before the
// handler reports the failure for retry.
func NewFetchHistoryHandler(refresher SymbolRefresher, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *FetchHistoryJob) error {
		rangeKey := job.Range
		if rangeKey == "" {
			rangeKey = history.DefaultRange
		}

		log.Info().
			Str("job_id", job.JobID).
			Str("symbol", job.Symbol).
			Str("range", rangeKey).
			Msg("Processing fetch job")

		_, doc, err := refresher.RefreshSymbol(ctx, job.Symbol, rangeKey, true)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", history.DocID(job.Symbol, rangeKey), err)
		}

		log.Info().
			Str("job_id", job.JobID).
			Int("points", len(doc.Data)).
			Msg("Fetch job completed")
		return nil
	}
}
