package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"shopscraper/internal/metrics"
	"shopscraper/internal/scrape"
)

const descriptionCacheSize = 512

// Books extracts book records from a catalogue page. Each item triggers
// a secondary fetch of its detail page for the description field; a
// failure there degrades to an empty description rather than failing
// the item. Detail pages are cached so repeated catalogue URLs do not
// refetch the same book.
type Books struct {
	detail  DetailFetcher
	cache   *lru.Cache[string, string]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBooks builds the books extractor. detail may be nil, in which case
// descriptions are always empty.
func NewBooks(detail DetailFetcher, logger *zap.Logger, m *metrics.Metrics) *Books {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, string](descriptionCacheSize)
	return &Books{
		detail:  detail,
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// Extract returns one record per product pod, in document order.
func (b *Books) Extract(ctx context.Context, page []byte, sourceURL string) ([]scrape.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse books page: %w", err)
	}

	var records []scrape.Record
	doc.Find("article.product_pod").Each(func(i int, sel *goquery.Selection) {
		record, err := b.extractItem(ctx, sel, sourceURL)
		if err != nil {
			b.metrics.IncItemSkip("books")
			b.logger.Warn("skipping malformed book",
				zap.String("source", sourceURL),
				zap.Int("index", i),
				zap.Error(err),
			)
			return
		}
		records = append(records, record)
	})

	b.metrics.IncItemsExtracted("books", len(records))
	return records, nil
}

func (b *Books) extractItem(ctx context.Context, sel *goquery.Selection, sourceURL string) (scrape.Record, error) {
	link := sel.Find("h3 a")
	title, ok := link.Attr("title")
	if !ok || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("missing title")
	}

	price, err := parsePrice(sel.Find("p.price_color").Text(), "£")
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", title, err)
	}

	rating := ratingWord(sel.Find("p.star-rating"))

	availability := strings.TrimSpace(sel.Find("p.instock.availability").Text())

	href, _ := link.Attr("href")
	detailURL := absoluteURL(sourceURL, href)

	return scrape.Record{
		"title":        strings.TrimSpace(title),
		"price":        price,
		"rating":       rating,
		"availability": availability,
		"category":     pathSegment(sourceURL, 2, "unknown"),
		"url":          detailURL,
		"description":  b.description(ctx, detailURL),
	}, nil
}

// description fetches the detail page and reads the meta description.
// All failures degrade to "".
func (b *Books) description(ctx context.Context, detailURL string) string {
	if b.detail == nil || detailURL == "" {
		return ""
	}
	if cached, ok := b.cache.Get(detailURL); ok {
		return cached
	}

	page, err := b.detail(ctx, detailURL)
	if err != nil {
		b.logger.Debug("detail fetch failed",
			zap.String("url", detailURL),
			zap.Error(err),
		)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	description = strings.TrimSpace(description)
	b.cache.Add(detailURL, description)
	return description
}

// ratingWord pulls the star count word out of the class list, e.g.
// "star-rating Three" -> "Three".
func ratingWord(sel *goquery.Selection) string {
	class, _ := sel.Attr("class")
	for _, word := range strings.Fields(class) {
		if word != "star-rating" {
			return word
		}
	}
	return ""
}
