package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopscraper/internal/scrape"
)

// JobRunner runs one named job and reports success.
type JobRunner interface {
	RunJob(ctx context.Context, target string) bool
}

// Orchestrator drives a full run: every configured target in order,
// then a stats snapshot and the execution report.
type Orchestrator struct {
	runner     JobRunner
	store      scrape.Store
	order      []string
	pause      time.Duration
	pauser     scrape.Pauser
	clock      scrape.Clock
	outputDir  string
	reportPath string
	logger     *zap.Logger
}

// NewOrchestrator builds an Orchestrator over the given runner. order
// fixes the sequence in which targets run.
func NewOrchestrator(runner JobRunner, store scrape.Store, order []string, pause time.Duration, clock scrape.Clock, outputDir, reportPath string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner:     runner,
		store:      store,
		order:      order,
		pause:      pause,
		pauser:     scrape.TimerPauser{},
		clock:      clock,
		outputDir:  outputDir,
		reportPath: reportPath,
		logger:     logger,
	}
}

// RunAll executes every target sequentially with a short pause between
// jobs. A failed job never stops the run; its outcome lands in the
// returned map alongside the others.
func (o *Orchestrator) RunAll(ctx context.Context) map[string]bool {
	o.logger.Info("starting all scraping jobs", zap.Strings("targets", o.order))

	results := make(map[string]bool, len(o.order))
	for i, target := range o.order {
		results[target] = o.runner.RunJob(ctx, target)
		if i < len(o.order)-1 {
			o.pauser.Pause(ctx, o.pause)
		}
	}

	stats, err := o.store.Stats(ctx)
	if err != nil {
		o.logger.Warn("reading run statistics failed", zap.Error(err))
		stats = scrape.EmptyRunStats(o.order)
	}

	report := BuildReport(o.clock.Now(), o.order, results, stats, o.outputDir)
	if err := o.writeReport(report); err != nil {
		o.logger.Warn("writing execution report failed",
			zap.String("path", o.reportPath),
			zap.Error(err),
		)
	}
	o.logger.Info("all scraping jobs completed", zap.String("report", o.reportPath))

	return results
}

func (o *Orchestrator) writeReport(report string) error {
	if dir := filepath.Dir(o.reportPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(o.reportPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// BuildReport renders the fixed-format execution report for one run.
func BuildReport(now time.Time, order []string, results map[string]bool, stats scrape.RunStats, outputDir string) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("WEB SCRAPING PIPELINE - EXECUTION REPORT\n")
	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("SCRAPING RESULTS:\n")
	for _, target := range order {
		outcome := "FAILED"
		if results[target] {
			outcome = "SUCCESS"
		}
		fmt.Fprintf(&b, "- %s: %s\n", titleCase(target), outcome)
	}

	b.WriteString("\nDATABASE STATISTICS:\n")
	for _, target := range order {
		fmt.Fprintf(&b, "- Total %s: %d\n", titleCase(target), stats.TotalRecords[target])
	}
	for _, target := range order {
		last := "Never"
		if ts, ok := stats.LastScrape[target]; ok && !ts.IsZero() {
			last = ts.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "- Last %s Scrape: %s\n", titleCase(target), last)
	}
	fmt.Fprintf(&b, "- Overall Success Rate: %.1f%%\n", stats.SuccessRate)

	b.WriteString("\nOUTPUT FILES:\n")
	for _, target := range order {
		fmt.Fprintf(&b, "- %s (latest scrape)\n", filepath.Join(outputDir, target+".csv"))
		fmt.Fprintf(&b, "- %s (from database)\n", filepath.Join(outputDir, target+"_latest.csv"))
	}
	b.WriteString("========================================\n")

	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
