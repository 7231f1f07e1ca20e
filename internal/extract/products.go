package extract

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"shopscraper/internal/metrics"
	"shopscraper/internal/scrape"
)

// Products extracts product records from an e-commerce listing page.
// Every field has a documented default, so a missing element never
// invalidates the item.
type Products struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewProducts builds the products extractor.
func NewProducts(logger *zap.Logger, m *metrics.Metrics) *Products {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Products{logger: logger, metrics: m}
}

// Extract returns one record per product thumbnail, in document order.
func (p *Products) Extract(_ context.Context, page []byte, sourceURL string) ([]scrape.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse products page: %w", err)
	}

	var records []scrape.Record
	doc.Find("div.thumbnail").Each(func(i int, sel *goquery.Selection) {
		record, err := p.extractItem(sel, sourceURL)
		if err != nil {
			p.metrics.IncItemSkip("products")
			p.logger.Warn("skipping malformed product",
				zap.String("source", sourceURL),
				zap.Int("index", i),
				zap.Error(err),
			)
			return
		}
		records = append(records, record)
	})

	p.metrics.IncItemsExtracted("products", len(records))
	return records, nil
}

func (p *Products) extractItem(sel *goquery.Selection, sourceURL string) (scrape.Record, error) {
	titleLink := sel.Find("a.title")

	name := strings.TrimSpace(titleLink.Text())
	if name == "" {
		name = "N/A"
	}

	price := 0.0
	if text := sel.Find("h4.price").Text(); strings.TrimSpace(text) != "" {
		if value, err := parsePrice(text, "$"); err == nil {
			price = value
		}
	}

	description := strings.TrimSpace(sel.Find("p.description").Text())

	rating := 0.0
	if attr, ok := sel.Find("p[data-rating]").Attr("data-rating"); ok {
		if value, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil {
			rating = value
		}
	}

	reviews := 0
	if text := sel.Find("p.review-count").Text(); strings.TrimSpace(text) != "" {
		if value, err := leadingInt(text); err == nil {
			reviews = value
		}
	}

	itemURL := sourceURL
	if href, ok := titleLink.Attr("href"); ok && href != "" {
		itemURL = absoluteURL(sourceURL, href)
	}

	return scrape.Record{
		"name":        name,
		"price":       price,
		"description": description,
		"rating":      rating,
		"reviews":     reviews,
		"category":    pathSegment(sourceURL, 1, "all"),
		"url":         itemURL,
	}, nil
}
