// Package job executes scrape jobs and orchestrates full runs.
package job

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopscraper/internal/export"
	"shopscraper/internal/metrics"
	"shopscraper/internal/scrape"
)

// PageScraper walks a target's URL list and returns the extracted
// records.
type PageScraper interface {
	Scrape(ctx context.Context, urls []string) ([]scrape.Record, error)
}

// RunnerConfig sets where the Runner writes its flat-file exports.
type RunnerConfig struct {
	OutputDir  string
	JSONDir    string
	JSONExport bool
}

// Runner executes a single scrape job end to end: scrape, persist,
// export, and append exactly one entry to the run log regardless of
// outcome.
type Runner struct {
	cfg     RunnerConfig
	store   scrape.Store
	clock   scrape.Clock
	ids     scrape.IDGenerator
	metrics *metrics.Metrics
	logger  *zap.Logger
	jobs    map[string]jobSpec
}

type jobSpec struct {
	target  scrape.Target
	scraper PageScraper
}

// NewRunner builds a Runner with no targets registered.
func NewRunner(cfg RunnerConfig, store scrape.Store, clock scrape.Clock, ids scrape.IDGenerator, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		store:   store,
		clock:   clock,
		ids:     ids,
		metrics: m,
		logger:  logger,
		jobs:    make(map[string]jobSpec),
	}
}

// Register makes a target runnable under target.Name.
func (r *Runner) Register(target scrape.Target, scraper PageScraper) {
	r.jobs[target.Name] = jobSpec{target: target, scraper: scraper}
}

// Targets lists the registered target names.
func (r *Runner) Targets() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	return names
}

// RunJob runs one job for the named target and reports whether it
// succeeded. Every invocation, including one naming an unknown target,
// appends exactly one result to the run log.
func (r *Runner) RunJob(ctx context.Context, name string) bool {
	start := r.clock.Now()

	id, err := r.ids.NewID()
	if err != nil {
		// The run log needs a usable id even for this failure.
		id = uuid.NewString()
		return r.finish(ctx, id, name, start, 0, fmt.Errorf("generate job id: %w", err))
	}

	entry, ok := r.jobs[name]
	if !ok {
		return r.finish(ctx, id, name, start, 0, fmt.Errorf("unknown target: %s", name))
	}

	r.logger.Info("starting scraping job",
		zap.String("job_id", id),
		zap.String("target", name),
	)

	records, err := entry.scraper.Scrape(ctx, entry.target.URLs)
	if err != nil {
		return r.finish(ctx, id, name, start, 0, fmt.Errorf("scrape: %w", err))
	}

	saved, err := r.store.AppendRecords(ctx, entry.target, records)
	if err != nil {
		return r.finish(ctx, id, name, start, 0, fmt.Errorf("persist records: %w", err))
	}
	r.metrics.AddRecordsPersisted(name, saved)

	r.exportSnapshot(entry.target, records)

	latestPath := filepath.Join(r.cfg.OutputDir, name+"_latest.csv")
	if _, err := r.store.ExportTable(ctx, entry.target.Table, latestPath); err != nil {
		return r.finish(ctx, id, name, start, 0, fmt.Errorf("export table: %w", err))
	}

	return r.finish(ctx, id, name, start, saved, nil)
}

// exportSnapshot writes the in-memory records as CSV (and JSONL when
// enabled). A snapshot write failure does not fail the job; the store
// already holds the records.
func (r *Runner) exportSnapshot(target scrape.Target, records []scrape.Record) {
	if len(records) == 0 {
		r.logger.Warn("no records to snapshot", zap.String("target", target.Name))
		return
	}

	csvPath := filepath.Join(r.cfg.OutputDir, target.Name+".csv")
	if err := export.WriteCSV(csvPath, target.Columns, records); err != nil {
		r.logger.Warn("csv snapshot failed",
			zap.String("target", target.Name),
			zap.String("path", csvPath),
			zap.Error(err),
		)
	} else {
		r.logger.Info("wrote csv snapshot",
			zap.String("target", target.Name),
			zap.String("path", csvPath),
			zap.Int("records", len(records)),
		)
	}

	if !r.cfg.JSONExport {
		return
	}
	jsonPath := filepath.Join(r.cfg.JSONDir, target.Name+".jsonl")
	if err := export.WriteJSONL(jsonPath, records); err != nil {
		r.logger.Warn("json snapshot failed",
			zap.String("target", target.Name),
			zap.String("path", jsonPath),
			zap.Error(err),
		)
	}
}

// finish is the single exit point for RunJob. It builds the immutable
// result, appends it to the run log, and records metrics.
func (r *Runner) finish(ctx context.Context, id, name string, start time.Time, records int, jobErr error) bool {
	end := r.clock.Now()

	status := scrape.JobStatusSuccess
	errText := ""
	if jobErr != nil {
		status = scrape.JobStatusFailed
		errText = jobErr.Error()
	}

	result := scrape.NewJobResult(id, name, status, records, errText, start, end)

	if err := r.store.AppendLogEntry(ctx, result); err != nil {
		r.logger.Error("appending run log entry failed",
			zap.String("job_id", id),
			zap.String("target", name),
			zap.Error(err),
		)
	}

	r.metrics.ObserveJob(name, string(status), result.Duration)

	if result.Succeeded() {
		r.logger.Info("scraping job completed",
			zap.String("job_id", id),
			zap.String("target", name),
			zap.Int("records_saved", records),
			zap.Duration("duration", result.Duration),
		)
	} else {
		r.logger.Error("scraping job failed",
			zap.String("job_id", id),
			zap.String("target", name),
			zap.Duration("duration", result.Duration),
			zap.Error(jobErr),
		)
	}

	return result.Succeeded()
}
