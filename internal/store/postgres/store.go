// Package postgres provides the Postgres-backed persistence layer for
// scraped records and the run log.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shopscraper/internal/export"
	"shopscraper/internal/scrape"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// recordTables enumerates the tables holding scraped records; the run
// log lives in scrape_runs.
var recordTables = []string{"books", "products"}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// Store implements scrape.Store on top of a pgx pool.
type Store struct {
	pool   querier
	logger *zap.Logger
}

// New connects to Postgres and returns a ready Store.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, logger), nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool querier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Init creates the record tables and the run log if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating TEXT NOT NULL DEFAULT '',
	availability TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS scrape_runs (
	id UUID PRIMARY KEY,
	target TEXT NOT NULL,
	status TEXT NOT NULL,
	records_scraped INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// AppendRecords inserts records into the target's table and returns the
// number of rows the database confirmed. An empty batch is a no-op. On
// error the confirmed count is discarded: the caller accounts zero
// records for a failed persistence.
func (s *Store) AppendRecords(ctx context.Context, target scrape.Target, records []scrape.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if !validTableName.MatchString(target.Table) {
		return 0, fmt.Errorf("invalid table name %q", target.Table)
	}

	placeholders := make([]string, len(target.Columns))
	for i := range target.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		target.Table,
		strings.Join(target.Columns, ", "),
		strings.Join(placeholders, ", "),
	)

	batch := &pgx.Batch{}
	for _, record := range records {
		args := make([]any, len(target.Columns))
		for i, column := range target.Columns {
			args[i] = record[column]
		}
		batch.Queue(query, args...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	count := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", target.Table, err)
		}
		count += int(tag.RowsAffected())
	}
	return count, nil
}

// AppendLogEntry appends one run-log row. Entries are never updated or
// deleted.
func (s *Store) AppendLogEntry(ctx context.Context, result scrape.JobResult) error {
	var errText any
	if result.ErrorText != "" {
		errText = result.ErrorText
	}
	query := `
INSERT INTO scrape_runs (
	id, target, status, records_scraped, error_message,
	started_at, finished_at, duration_seconds
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		result.ID,
		result.Target,
		string(result.Status),
		result.RecordsScraped,
		errText,
		result.StartedAt,
		result.FinishedAt,
		result.Duration.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ExportTable writes the full contents of table to a CSV file at path
// and returns the path.
func (s *Store) ExportTable(ctx context.Context, table string, path string) (string, error) {
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		return "", fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = string(field.Name)
	}

	var records []scrape.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return "", fmt.Errorf("read %s row: %w", table, err)
		}
		record := make(scrape.Record, len(columns))
		for i, column := range columns {
			record[column] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate %s: %w", table, err)
	}

	if err := export.WriteCSV(path, columns, records); err != nil {
		return "", fmt.Errorf("export %s: %w", table, err)
	}
	s.logger.Info("exported table",
		zap.String("table", table),
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return path, nil
}

// Stats recomputes aggregate run statistics from the persisted state.
func (s *Store) Stats(ctx context.Context) (scrape.RunStats, error) {
	stats := scrape.RunStats{
		TotalRecords: make(map[string]int64, len(recordTables)),
		LastScrape:   make(map[string]time.Time, len(recordTables)),
	}

	for _, table := range recordTables {
		var (
			total int64
			last  *time.Time
		)
		query := fmt.Sprintf("SELECT COUNT(*), MAX(scraped_at) FROM %s", table)
		if err := s.pool.QueryRow(ctx, query).Scan(&total, &last); err != nil {
			return scrape.RunStats{}, fmt.Errorf("count %s: %w", table, err)
		}
		stats.TotalRecords[table] = total
		if last != nil {
			stats.LastScrape[table] = *last
		}
	}

	var success, total int64
	query := `SELECT COUNT(*) FILTER (WHERE status = 'success'), COUNT(*) FROM scrape_runs`
	if err := s.pool.QueryRow(ctx, query).Scan(&success, &total); err != nil {
		return scrape.RunStats{}, fmt.Errorf("count runs: %w", err)
	}
	stats.TotalRuns = total
	if total > 0 {
		stats.SuccessRate = float64(success) / float64(total) * 100
	}
	return stats, nil
}
