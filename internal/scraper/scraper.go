// Package scraper drives a single target's crawl across its configured
// URL list.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shopscraper/internal/scrape"
)

// TargetScraper iterates a target's URLs in order, fetching and
// extracting each page and pacing requests with a politeness delay.
type TargetScraper struct {
	target    string
	fetcher   scrape.Fetcher
	extractor scrape.Extractor
	delay     time.Duration
	pauser    scrape.Pauser
	logger    *zap.Logger
}

// New builds a TargetScraper for one named target.
func New(target string, fetcher scrape.Fetcher, extractor scrape.Extractor, delay time.Duration, logger *zap.Logger) *TargetScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TargetScraper{
		target:    target,
		fetcher:   fetcher,
		extractor: extractor,
		delay:     delay,
		pauser:    scrape.TimerPauser{},
		logger:    logger,
	}
}

// Scrape walks urls in order and returns the accumulated records. A URL
// whose fetch fails is skipped; an empty result is not an error. The
// politeness delay applies after every URL except the last.
func (s *TargetScraper) Scrape(ctx context.Context, urls []string) ([]scrape.Record, error) {
	var records []scrape.Record
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("scrape %s canceled: %w", s.target, err)
		}

		s.logger.Info("scraping url",
			zap.String("target", s.target),
			zap.String("url", url),
		)

		page, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			s.logger.Warn("skipping unreachable url",
				zap.String("target", s.target),
				zap.String("url", url),
				zap.Error(err),
			)
			s.pauseBetween(ctx, i, len(urls))
			continue
		}

		extracted, err := s.extractor.Extract(ctx, page, url)
		if err != nil {
			return records, fmt.Errorf("extract %s from %s: %w", s.target, url, err)
		}
		records = append(records, extracted...)

		s.pauseBetween(ctx, i, len(urls))
	}
	return records, nil
}

func (s *TargetScraper) pauseBetween(ctx context.Context, index, total int) {
	if index == total-1 {
		return
	}
	s.pauser.Pause(ctx, s.delay)
}
