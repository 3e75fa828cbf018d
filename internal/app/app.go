// Package app wires the stores, providers and services shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/history"
	infraBQ "github.com/dvloznov/carteira/internal/infra/bigquery"
	"github.com/dvloznov/carteira/internal/infra/gcs"
	"github.com/dvloznov/carteira/internal/infra/sqlite"
	"github.com/dvloznov/carteira/internal/market"
	"github.com/dvloznov/carteira/internal/pipeline"
	"github.com/dvloznov/carteira/internal/providers"
	"github.com/dvloznov/carteira/internal/providers/bcb"
	"github.com/dvloznov/carteira/internal/providers/brapi"
	"github.com/dvloznov/carteira/internal/providers/github"
	"github.com/dvloznov/carteira/internal/providers/twelvedata"
	"github.com/dvloznov/carteira/internal/providers/yahoo"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	DB   *sql.DB
	Repo *sqlite.Repository

	// GCS is nil when no bucket is configured; history documents then live in SQLite.
	GCS     *gcs.Client
	History history.Store

	Recorder store.RunRecorder
	// Runs is nil without a BigQuery project.
	Runs store.RunLister

	Rates     *bcb.Client
	Market    *market.Service
	Refresher *history.Refresher

	closers []func() error
}

// New opens the database, applies migrations and builds every service that
// does not need the generative model.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	db, err := sqlite.OpenAndMigrate(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a := &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Repo:     sqlite.NewRepository(db),
		Recorder: store.NopRunRecorder{},
	}
	a.closers = append(a.closers, db.Close)
	a.History = a.Repo

	if cfg.GCSBucket != "" {
		client, err := gcs.NewClient(ctx, cfg.GCSBucket)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.GCS = client
		a.History = client
		a.closers = append(a.closers, client.Close)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Using GCS for statements and historical data")
	}

	if cfg.BigQueryProject != "" {
		recorder, err := infraBQ.NewRunRecorder(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		if err := recorder.EnsureTable(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not ensure BigQuery runs table")
		}
		a.Recorder = recorder
		a.Runs = recorder
		a.closers = append(a.closers, recorder.Close)
	}

	httpClient := providers.NewHTTPClient()
	a.Rates = bcb.NewClient("", httpClient)
	a.Market = market.NewService(map[string]market.QuoteProvider{
		market.ProviderBrapi:      brapi.NewClient("", cfg.BrapiAPIKey, httpClient),
		market.ProviderTwelveData: twelvedata.NewClient("", cfg.TwelveDataAPIKey, cfg.TwelveDataMinInterval, httpClient),
	}, a.Rates, log)

	fetcher, err := yahoo.NewClient("")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Refresher = history.NewRefresher(a.History, fetcher, a.Recorder, log)

	return a, nil
}

// Extractor builds the model-backed transaction extractor. It fails when
// GEMINI_API_KEY is not configured.
func (a *App) Extractor(ctx context.Context) (*pipeline.Extractor, error) {
	gen, err := pipeline.NewGeminiGenerator(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("Extractor: %w", err)
	}
	return pipeline.NewExtractor(gen, a.Log), nil
}

// Importer builds the statement import pipeline around extractor.
func (a *App) Importer(extractor pipeline.TransactionExtractor) *pipeline.Importer {
	var archiver pipeline.Archiver
	if a.GCS != nil {
		archiver = a.GCS
	}
	persister := pipeline.NewPersister(a.Repo, a.Repo, a.Log)
	return pipeline.NewImporter(archiver, extractor, persister, a.Recorder, a.Log)
}

// Dispatcher returns the GitHub workflow dispatcher, or nil when the
// repository settings are incomplete.
func (a *App) Dispatcher() *github.Dispatcher {
	if !a.Config.GitHubDispatchEnabled() {
		return nil
	}
	return github.NewDispatcher("", a.Config.GitHubToken, a.Config.GitHubRepoOwner, a.Config.GitHubRepoName, nil)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
