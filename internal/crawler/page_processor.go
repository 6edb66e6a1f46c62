package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/masahif/campuscrawl/internal/parser"
)

// DefaultPageProcessor fetches a page through the fetch engine and scans
// it for URLs.
type DefaultPageProcessor struct {
	fetcher        DocumentFetcher
	allowedSchemes []string
}

// NewPageProcessor creates a page processor with default schemes
func NewPageProcessor(fetcher DocumentFetcher) PageProcessor {
	return NewPageProcessorWithSchemes(fetcher, []string{"https://", "http://"})
}

// NewPageProcessorWithSchemes creates a page processor with custom allowed schemes
func NewPageProcessorWithSchemes(fetcher DocumentFetcher, allowedSchemes []string) PageProcessor {
	return &DefaultPageProcessor{
		fetcher:        fetcher,
		allowedSchemes: allowedSchemes,
	}
}

// Process returns every URL referenced by the page, resolved against the
// page's final URL.
func (p *DefaultPageProcessor) Process(ctx context.Context, url string) ([]string, error) {
	doc, err := p.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	scanner, err := parser.NewLinkScannerWithSchemes(doc.BaseURL(), p.allowedSchemes)
	if err != nil {
		return nil, err
	}

	result, err := scanner.Scan(doc.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to scan page: %w", err)
	}

	slog.Debug("Scanned page", "url", url, "final_url", doc.BaseURL(), "tier", doc.Tier, "urls", len(result.URLs))
	return result.URLs, nil
}
