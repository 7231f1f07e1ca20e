// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopscraper/internal/api"
	"shopscraper/internal/clock/system"
	"shopscraper/internal/config"
	"shopscraper/internal/extract"
	"shopscraper/internal/fetcher"
	"shopscraper/internal/id/uuid"
	"shopscraper/internal/job"
	"shopscraper/internal/metrics"
	"shopscraper/internal/sched"
	"shopscraper/internal/scrape"
	"shopscraper/internal/scraper"
	"shopscraper/internal/store/postgres"
)

// App owns the shared services for the scrape pipeline. It is built
// once at startup and handed to the commands that need it.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        *postgres.Store
	metrics      *metrics.Metrics
	runner       *job.Runner
	orchestrator *job.Orchestrator
}

// New builds the full service graph from configuration. It fails fast
// if the database cannot be reached or its schema cannot be ensured.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("initializing application services")

	store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	m := metrics.New()

	fetchClient := fetcher.New(fetcher.Config{
		UserAgent:      cfg.HTTP.UserAgent,
		Timeout:        cfg.Timeout(),
		MaxAttempts:    cfg.HTTP.MaxAttempts,
		BackoffInitial: cfg.BackoffInitial(),
	}, logger, m)

	clk := system.New()
	ids := uuid.New()

	runner := job.NewRunner(job.RunnerConfig{
		OutputDir:  cfg.Output.Dir,
		JSONDir:    cfg.Output.JSONDir,
		JSONExport: cfg.Output.JSONExport,
	}, store, clk, ids, m, logger)

	registerTargets(runner, cfg, fetchClient, logger, m)

	orchestrator := job.NewOrchestrator(
		runner,
		store,
		cfg.TargetSeq,
		cfg.JobPause(),
		clk,
		cfg.Output.Dir,
		cfg.Output.ReportPath,
		logger,
	)

	logger.Info("application services initialized")

	return &App{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		metrics:      m,
		runner:       runner,
		orchestrator: orchestrator,
	}, nil
}

// registerTargets wires every configured target with its extractor.
func registerTargets(runner *job.Runner, cfg config.Config, fetchClient *fetcher.Client, logger *zap.Logger, m *metrics.Metrics) {
	for _, name := range cfg.TargetSeq {
		urls := cfg.Targets[name].URLs

		var (
			target    scrape.Target
			extractor scrape.Extractor
		)
		switch name {
		case "books":
			target = scrape.BooksTarget(urls)
			extractor = extract.NewBooks(fetchClient.Fetch, logger, m)
		case "products":
			target = scrape.ProductsTarget(urls)
			extractor = extract.NewProducts(logger, m)
		default:
			logger.Warn("skipping target without extractor", zap.String("target", name))
			continue
		}

		runner.Register(target, scraper.New(name, fetchClient, extractor, cfg.Delay(), logger))
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store exposes the relational store.
func (a *App) Store() scrape.Store {
	return a.store
}

// Runner returns the job runner for single-target commands.
func (a *App) Runner() *job.Runner {
	return a.runner
}

// Orchestrator returns the full-run orchestrator.
func (a *App) Orchestrator() *job.Orchestrator {
	return a.orchestrator
}

// StatusServer builds the HTTP status API over the App's store and
// metrics registry.
func (a *App) StatusServer() *api.Server {
	return api.NewServer(a.store, a.metrics.Registry, a.logger)
}

// Scheduler builds the interval loop that runs the whole pipeline.
func (a *App) Scheduler() *sched.Scheduler {
	return sched.New(a.cfg.Interval(), func(ctx context.Context) {
		a.orchestrator.RunAll(ctx)
	}, a.logger)
}

// Close shuts down the shared services and flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.store.Close()
	_ = a.logger.Sync() // stdout sync can fail on some platforms
}
