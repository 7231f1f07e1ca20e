// Package extract turns raw page content into records, one extractor
// per target. A malformed item is skipped with a logged warning and
// never aborts the page.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DetailFetcher retrieves a secondary page during extraction. It is
// injected so extractors stay testable without live network access.
type DetailFetcher func(ctx context.Context, url string) ([]byte, error)

// parsePrice strips currency symbols and whitespace before parsing.
func parsePrice(text string, symbols ...string) (float64, error) {
	text = strings.TrimSpace(text)
	for _, s := range symbols {
		text = strings.ReplaceAll(text, s, "")
	}
	// Pages occasionally encode the pound sign through a latin-1
	// round trip; drop the stray byte as well.
	text = strings.ReplaceAll(text, "Â", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty price")
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return value, nil
}

// leadingInt parses the first whitespace-separated token of text as an
// integer, e.g. "14 reviews" -> 14.
func leadingInt(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty count")
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", fields[0], err)
	}
	return value, nil
}

// absoluteURL resolves href against base, returning href unchanged when
// either side fails to parse.
func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// pathSegment returns the n-th path segment from the end of rawURL
// (1 = last), or fallback when the URL has no such segment.
func pathSegment(rawURL string, fromEnd int, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < fromEnd || segments[len(segments)-fromEnd] == "" {
		return fallback
	}
	return segments[len(segments)-fromEnd]
}
