// Package fetcher implements the retrying page fetch primitive on top
// of a Colly collector.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"shopscraper/internal/metrics"
	"shopscraper/internal/scrape"
)

// ErrUnavailable is returned once every attempt for a URL has failed.
// The distinction between timeout, connection error and HTTP error is
// logged here and not preserved past this boundary.
var ErrUnavailable = errors.New("page unavailable after retries")

// Config controls fetch behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	BackoffInitial time.Duration
}

// Client fetches pages with bounded retries and exponential backoff.
type Client struct {
	cfg       Config
	base      *colly.Collector
	transport http.RoundTripper
	pauser    scrape.Pauser
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a Client. The metrics handle may be nil.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	transport := newHTTPTransport(cfg.Timeout)
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(transport)

	return &Client{
		cfg:       cfg,
		base:      base,
		transport: transport,
		pauser:    scrape.TimerPauser{},
		logger:    logger,
		metrics:   m,
	}
}

// Fetch issues a GET for url, retrying transport failures with
// exponential backoff. It returns the page body on success or
// ErrUnavailable once the attempt budget is exhausted. No partial
// content is ever returned.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}

		start := time.Now()
		body, err := c.attempt(ctx, url)
		c.metrics.ObserveFetchDuration(time.Since(start))
		if err == nil {
			c.metrics.IncFetchAttempt("success")
			c.logger.Info("fetched page", zap.String("url", url), zap.Int("attempt", attempt))
			return body, nil
		}

		category := classify(err)
		c.metrics.IncFetchAttempt(category)
		c.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.String("category", category),
			zap.Error(err),
		)

		if attempt == c.cfg.MaxAttempts {
			break
		}
		c.metrics.IncFetchRetry()
		c.pauser.Pause(ctx, c.backoff(attempt))
	}

	c.logger.Error("page unavailable",
		zap.String("url", url),
		zap.Int("attempts", c.cfg.MaxAttempts),
	)
	return nil, ErrUnavailable
}

// attempt performs one GET through a cloned collector. Cloning resets
// the visited-URL cache so the same URL can be requested again.
func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	collector := c.base.Clone()
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(c.transport)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			fetchErr = fmt.Errorf("http status %d", r.StatusCode)
			return
		}
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("http status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		return body, nil
	}
}

// backoff doubles the wait for every failed attempt: base, 2*base, ...
func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.cfg.BackoffInitial * time.Duration(1<<(attempt-1))
}

func classify(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	return "http_error"
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
