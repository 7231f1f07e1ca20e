package postgres

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopscraper/internal/scrape"
)

func TestAppendRecordsBatchInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())
	target := scrape.BooksTarget(nil)

	records := []scrape.Record{
		{
			"title": "A Light in the Attic", "price": 51.77, "rating": "Three",
			"availability": "In stock", "category": "poetry",
			"url": "https://books.example.com/1", "description": "desc one",
		},
		{
			"title": "Tipping the Velvet", "price": 53.74, "rating": "One",
			"availability": "In stock", "category": "fiction",
			"url": "https://books.example.com/2", "description": "",
		},
	}

	batch := mock.ExpectBatch()
	for _, record := range records {
		batch.ExpectExec("INSERT INTO books").
			WithArgs(
				record["title"], record["price"], record["rating"],
				record["availability"], record["category"],
				record["url"], record["description"],
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	count, err := store.AppendRecords(context.Background(), target, records)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRecordsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())
	count, err := store.AppendRecords(context.Background(), scrape.BooksTarget(nil), nil)
	require.NoError(t, err)
	require.Zero(t, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRecordsRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())
	target := scrape.Target{Name: "evil", Table: "books; DROP TABLE books", Columns: []string{"title"}}
	_, err = store.AppendRecords(context.Background(), target, []scrape.Record{{"title": "x"}})
	require.Error(t, err)
}

func TestAppendLogEntryInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())

	start := time.Unix(1700000000, 0).UTC()
	end := start.Add(3 * time.Second)
	result := scrape.NewJobResult("run-1", "books", scrape.JobStatusFailed, 0, "persistence exploded", start, end)

	mock.ExpectExec("INSERT INTO scrape_runs").
		WithArgs(
			"run-1", "books", "failed", 0, "persistence exploded",
			start, end, 3.0,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.AppendLogEntry(context.Background(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportTableWritesCSV(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())

	scrapedAt := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"id", "title", "price", "scraped_at"}).
		AddRow(int64(1), "A Light in the Attic", 51.77, scrapedAt).
		AddRow(int64(2), "Tipping the Velvet", 53.74, scrapedAt)
	mock.ExpectQuery(`SELECT \* FROM books ORDER BY id`).WillReturnRows(rows)

	path := filepath.Join(t.TempDir(), "books_latest.csv")
	got, err := store.ExportTable(context.Background(), "books", path)
	require.NoError(t, err)
	require.Equal(t, path, got)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	parsed, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, 3, "header plus exported rows")
	require.Equal(t, []string{"id", "title", "price", "scraped_at"}, parsed[0])
	require.Equal(t, "A Light in the Attic", parsed[1][1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportTableRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())
	_, err = store.ExportTable(context.Background(), "books OR 1=1", "out.csv")
	require.Error(t, err)
}

func TestStatsAggregates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())

	lastBooks := time.Unix(1700000500, 0).UTC()
	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(scraped_at\) FROM books`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(int64(40), &lastBooks))
	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(scraped_at\) FROM products`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(int64(0), nil))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER`).
		WillReturnRows(pgxmock.NewRows([]string{"success", "total"}).AddRow(int64(3), int64(4)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 40, stats.TotalRecords["books"])
	require.EqualValues(t, 0, stats.TotalRecords["products"])
	require.Equal(t, lastBooks, stats.LastScrape["books"])
	_, seen := stats.LastScrape["products"]
	require.False(t, seen, "never-scraped target has no last-scrape entry")
	require.EqualValues(t, 4, stats.TotalRuns)
	require.InDelta(t, 75.0, stats.SuccessRate, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}
