package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/carteira/internal/api"
	"github.com/dvloznov/carteira/internal/api/handlers"
	"github.com/dvloznov/carteira/internal/app"
	"github.com/dvloznov/carteira/internal/auth"
	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/jobs"
	"github.com/dvloznov/carteira/internal/jobs/inmemory"
	"github.com/dvloznov/carteira/internal/logger"
	"github.com/dvloznov/carteira/internal/providers"
)

func main() {
	cfg, warnings := config.Load()

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	extractor, err := a.Extractor(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement extractor")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewFetchHistoryHandler(a.Refresher, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// A nil *github.Dispatcher must not reach the handler as a non-nil interface.
	var dispatcher handlers.Dispatcher
	if d := a.Dispatcher(); d != nil {
		dispatcher = d
		log.Info().Str("repo", cfg.GitHubRepoOwner+"/"+cfg.GitHubRepoName).Msg("Historical fetches dispatch to GitHub Actions")
	} else {
		log.Info().Msg("Historical fetches run on the local job queue")
	}

	if cfg.GoogleClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID is not set; Google login will fail")
	}
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenExpiry)
	identity := auth.NewGoogleAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, providers.NewHTTPClient())

	// Initialize handlers
	router := api.NewRouter(api.Handlers{
		Auth:         handlers.NewAuthHandler(identity, tokens, a.Repo, a.Repo, log),
		Transactions: handlers.NewTransactionsHandler(a.Repo, log),
		Categories:   handlers.NewCategoriesHandler(a.Repo, log),
		Investments:  handlers.NewInvestmentsHandler(a.Repo, log),
		Profile:      handlers.NewProfileHandler(a.Repo, log),
		Statements:   handlers.NewStatementsHandler(a.Importer(extractor), extractor, cfg.MaxUploadSizeBytes, log),
		Market:       handlers.NewMarketHandler(a.Market, log),
		History:      handlers.NewHistoryHandler(a.History, dispatcher, jobQueue, jobStore, log),
		Proxy:        handlers.NewProxyHandler(providers.NewHTTPClient(), cfg.ProxyAllowedHosts, log),
	}, api.Options{
		Tokens:         tokens,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Log:            log,
	})

	// Create HTTP server. Statement imports call the model, so writes get a long timeout.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
