package job

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopscraper/internal/scrape"
)

type fakeScraper struct {
	records []scrape.Record
	err     error
	calls   int
}

func (f *fakeScraper) Scrape(_ context.Context, _ []string) ([]scrape.Record, error) {
	f.calls++
	return f.records, f.err
}

type fakeStore struct {
	appendErr error
	exportErr error
	statsErr  error
	stats     scrape.RunStats

	appended []scrape.Record
	logged   []scrape.JobResult
	exports  []string
}

func (f *fakeStore) AppendRecords(_ context.Context, _ scrape.Target, records []scrape.Record) (int, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended = append(f.appended, records...)
	return len(records), nil
}

func (f *fakeStore) AppendLogEntry(_ context.Context, result scrape.JobResult) error {
	f.logged = append(f.logged, result)
	return nil
}

func (f *fakeStore) ExportTable(_ context.Context, table, path string) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	f.exports = append(f.exports, table+"->"+path)
	return path, nil
}

func (f *fakeStore) Stats(_ context.Context) (scrape.RunStats, error) {
	if f.statsErr != nil {
		return scrape.RunStats{}, f.statsErr
	}
	return f.stats, nil
}

type fixedClock struct {
	times []time.Time
	next  int
}

func (c *fixedClock) Now() time.Time {
	if c.next >= len(c.times) {
		return c.times[len(c.times)-1]
	}
	t := c.times[c.next]
	c.next++
	return t
}

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("job-%d", s.n), nil
}

type brokenIDs struct{}

func (brokenIDs) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func testRunner(t *testing.T, store *fakeStore, scraper *fakeScraper) *Runner {
	t.Helper()

	dir := t.TempDir()
	clock := &fixedClock{times: []time.Time{
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC),
	}}
	r := NewRunner(RunnerConfig{OutputDir: dir, JSONDir: filepath.Join(dir, "json")}, store, clock, &seqIDs{}, nil, zap.NewNop())
	r.Register(scrape.BooksTarget([]string{"https://example.com/"}), scraper)
	return r
}

func TestRunJobSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	scraper := &fakeScraper{records: []scrape.Record{
		{"title": "A Light in the Attic", "price": 51.77},
		{"title": "Tipping the Velvet", "price": 53.74},
	}}
	r := testRunner(t, store, scraper)

	ok := r.RunJob(context.Background(), "books")
	require.True(t, ok)
	require.Equal(t, 1, scraper.calls)
	require.Len(t, store.appended, 2)

	require.Len(t, store.logged, 1, "every job appends exactly one log entry")
	result := store.logged[0]
	require.Equal(t, "job-1", result.ID)
	require.Equal(t, "books", result.Target)
	require.Equal(t, scrape.JobStatusSuccess, result.Status)
	require.Equal(t, 2, result.RecordsScraped)
	require.Empty(t, result.ErrorText)
	require.Equal(t, 5*time.Second, result.Duration)

	require.Len(t, store.exports, 1)
	require.Contains(t, store.exports[0], "books_latest.csv")
}

func TestRunJobWritesSnapshotCSV(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	scraper := &fakeScraper{records: []scrape.Record{
		{"title": "Sharp Objects", "price": 47.82, "rating": "Four"},
	}}
	r := testRunner(t, store, scraper)

	require.True(t, r.RunJob(context.Background(), "books"))

	f, err := os.Open(filepath.Join(r.cfg.OutputDir, "books.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, scrape.BooksTarget(nil).Columns, rows[0])
	require.Equal(t, "Sharp Objects", rows[1][0])
}

func TestRunJobUnknownTarget(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := testRunner(t, store, &fakeScraper{})

	ok := r.RunJob(context.Background(), "gadgets")
	require.False(t, ok)

	require.Len(t, store.logged, 1)
	result := store.logged[0]
	require.Equal(t, scrape.JobStatusFailed, result.Status)
	require.Zero(t, result.RecordsScraped)
	require.Contains(t, result.ErrorText, "unknown target")
	require.Empty(t, store.appended, "nothing is scraped for an unknown target")
}

func TestRunJobScrapeFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	scraper := &fakeScraper{err: errors.New("document is not parseable")}
	r := testRunner(t, store, scraper)

	ok := r.RunJob(context.Background(), "books")
	require.False(t, ok)

	require.Len(t, store.logged, 1)
	require.Equal(t, scrape.JobStatusFailed, store.logged[0].Status)
	require.Zero(t, store.logged[0].RecordsScraped)
	require.Contains(t, store.logged[0].ErrorText, "document is not parseable")
}

func TestRunJobPersistenceFailureYieldsZeroRecords(t *testing.T) {
	t.Parallel()

	store := &fakeStore{appendErr: errors.New("connection refused")}
	scraper := &fakeScraper{records: []scrape.Record{{"title": "Soumission"}}}
	r := testRunner(t, store, scraper)

	ok := r.RunJob(context.Background(), "books")
	require.False(t, ok)

	require.Len(t, store.logged, 1)
	result := store.logged[0]
	require.Equal(t, scrape.JobStatusFailed, result.Status)
	require.Zero(t, result.RecordsScraped, "records count only when the store confirmed them")
	require.Contains(t, result.ErrorText, "persist records")
}

func TestRunJobTableExportFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{exportErr: errors.New("disk full")}
	scraper := &fakeScraper{records: []scrape.Record{{"title": "The Requiem Red"}}}
	r := testRunner(t, store, scraper)

	ok := r.RunJob(context.Background(), "books")
	require.False(t, ok)
	require.Len(t, store.logged, 1)
	require.Equal(t, scrape.JobStatusFailed, store.logged[0].Status)
}

func TestRunJobEmptyScrapeStillSucceeds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := testRunner(t, store, &fakeScraper{})

	ok := r.RunJob(context.Background(), "books")
	require.True(t, ok, "an empty scrape is not a failure")

	require.Len(t, store.logged, 1)
	require.Equal(t, scrape.JobStatusSuccess, store.logged[0].Status)
	require.Zero(t, store.logged[0].RecordsScraped)

	_, err := os.Stat(filepath.Join(r.cfg.OutputDir, "books.csv"))
	require.True(t, os.IsNotExist(err), "no snapshot file for an empty scrape")
}

func TestRunJobIDGenerationFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	scraper := &fakeScraper{records: []scrape.Record{{"title": "It's Only the Himalayas"}}}
	r := testRunner(t, store, scraper)
	r.ids = brokenIDs{}

	ok := r.RunJob(context.Background(), "books")
	require.False(t, ok)
	require.Zero(t, scraper.calls, "no scraping without a job id")

	require.Len(t, store.logged, 1)
	result := store.logged[0]
	require.NotEmpty(t, result.ID, "the run log still gets a usable id")
	require.Equal(t, scrape.JobStatusFailed, result.Status)
	require.Zero(t, result.RecordsScraped)
	require.Contains(t, result.ErrorText, "generate job id")
}

func TestRunJobWritesJSONLWhenEnabled(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	scraper := &fakeScraper{records: []scrape.Record{{"title": "Set Me Free"}}}
	r := testRunner(t, store, scraper)
	r.cfg.JSONExport = true

	require.True(t, r.RunJob(context.Background(), "books"))

	data, err := os.ReadFile(filepath.Join(r.cfg.JSONDir, "books.jsonl"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Set Me Free")
}
