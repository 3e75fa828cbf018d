// Command refresh re-fetches stale historical price documents. It is meant
// to run on a schedule and exits non-zero when any symbol fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dvloznov/carteira/internal/app"
	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/logger"
)

func main() {
	cfg, warnings := config.Load()

	maxSymbols := flag.Int("max-symbols", cfg.MaxRefreshSymbols, "Maximum number of symbols to refresh (or set MAX_REFRESH_SYMBOLS env)")
	rangeKey := flag.String("range", history.DefaultRange, "Document range to refresh")
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	if err := history.ValidateRange(*rangeKey); err != nil {
		log.Fatal().Err(err).Msg("Invalid -range")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	log.Info().Int("max_symbols", *maxSymbols).Str("range", *rangeKey).Msg("Starting historical data refresh")
	summary, err := a.Refresher.Run(ctx, history.Options{MaxSymbols: *maxSymbols, Range: *rangeKey})
	a.Close()
	if err != nil {
		log.Error().Err(err).Msg("Refresh aborted")
		os.Exit(1)
	}

	log.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("Refresh finished")

	fmt.Printf("Refreshed %d symbols: %d succeeded (%d fresh), %d failed\n",
		summary.Total, summary.Succeeded, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		symbols := make([]string, 0, len(summary.Failures))
		for s := range summary.Failures {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Printf("  %s: %s\n", s, summary.Failures[s])
		}
		os.Exit(1)
	}
}
