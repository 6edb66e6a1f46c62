package crawler

import (
	"context"

	"github.com/masahif/campuscrawl/internal/fetch"
)

// Discoverer performs a bounded discovery run from one start URL.
type Discoverer interface {
	Discover(ctx context.Context, startURL string, maxDepth, maxPages int) (*Result, error)
}

// PageProcessor fetches one page and returns the absolute URLs it references.
type PageProcessor interface {
	Process(ctx context.Context, url string) ([]string, error)
}

// DocumentFetcher returns the raw HTML of a URL.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*fetch.Document, error)
}
