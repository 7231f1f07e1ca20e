package scrape

import (
	"context"
	"time"
)

// Fetcher retrieves the raw content of a page. Implementations retry
// internally; the caller only learns whether content could be obtained.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns raw page content into records. A malformed item never
// fails the whole extraction; the returned error covers only an
// unreadable document.
type Extractor interface {
	Extract(ctx context.Context, page []byte, sourceURL string) ([]Record, error)
}

// Store persists records and the run log. Record counts returned by
// AppendRecords are authoritative for job accounting.
type Store interface {
	AppendRecords(ctx context.Context, target Target, records []Record) (int, error)
	AppendLogEntry(ctx context.Context, result JobResult) error
	ExportTable(ctx context.Context, table string, path string) (string, error)
	Stats(ctx context.Context) (RunStats, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job result IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
