// Package scrape defines core types shared across subsystems.
package scrape

import "time"

// JobStatus represents the terminal outcome of a scrape job.
type JobStatus string

// Job status values persisted in the run log.
const (
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// Record is one structured item extracted from a page. Field values are
// scalars (string, float64, int); a field missing on the source page is
// present here with its documented default value.
type Record map[string]any

// Target describes one named scrape category: where its records live in
// the store and the fixed column order used for persistence and export.
type Target struct {
	Name    string
	Table   string
	Columns []string
	URLs    []string
}

// JobResult captures the outcome of a single job execution. It is built
// once by the job runner, appended to the run log, and never mutated.
type JobResult struct {
	ID             string
	Target         string
	Status         JobStatus
	RecordsScraped int
	ErrorText      string
	StartedAt      time.Time
	FinishedAt     time.Time
	Duration       time.Duration
}

// NewJobResult assembles an immutable JobResult, deriving Duration from
// the two timestamps. A clock skew that would yield a negative duration
// is clamped to zero.
func NewJobResult(id, target string, status JobStatus, records int, errText string, start, end time.Time) JobResult {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	return JobResult{
		ID:             id,
		Target:         target,
		Status:         status,
		RecordsScraped: records,
		ErrorText:      errText,
		StartedAt:      start,
		FinishedAt:     end,
		Duration:       d,
	}
}

// Succeeded reports whether the job finished with status success.
func (r JobResult) Succeeded() bool {
	return r.Status == JobStatusSuccess
}

// RunStats aggregates the persisted state across all logged runs. It is
// derived on demand from the store and never cached.
type RunStats struct {
	TotalRecords map[string]int64
	LastScrape   map[string]time.Time
	TotalRuns    int64
	SuccessRate  float64
}

// EmptyRunStats returns zero-valued stats for the configured targets,
// used when the store cannot be queried.
func EmptyRunStats(targets []string) RunStats {
	stats := RunStats{
		TotalRecords: make(map[string]int64, len(targets)),
		LastScrape:   make(map[string]time.Time, len(targets)),
	}
	for _, t := range targets {
		stats.TotalRecords[t] = 0
	}
	return stats
}
