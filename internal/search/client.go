// Package search discovers pages through a web search engine's HTML
// results and pulls their content through the fetch engine.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/masahif/campuscrawl/internal/fetch"
	"github.com/masahif/campuscrawl/internal/ratelimit"
)

// DefaultEndpoint is the DuckDuckGo HTML endpoint; it needs no API key.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

var (
	// ErrUnknownCategory is returned for a category without a query list.
	ErrUnknownCategory = errors.New("unknown search category")
	// ErrEmptyQuery is returned when Search is called without a query.
	ErrEmptyQuery = errors.New("empty search query")
)

const (
	minFallbackTitleRunes = 10 // fallback links need longer titles
	minContentRunes       = 50 // ingested pages need more content
	fallbackSnippetRunes  = 150
)

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Query   string // query that produced the hit
}

// Page is a search hit with its fetched content.
type Page struct {
	Result    Result
	URL       string // final URL after redirects
	Title     string
	Content   string
	Source    string // hostname
	Metadata  fetch.Metadata
	FetchedAt time.Time
}

// Fetcher is the subset of the fetch engine the client uses.
type Fetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*fetch.Document, error)
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Options configures a Client.
type Options struct {
	Endpoint string
	// FallbackEndpoint is searched when Endpoint fails or finds nothing.
	// Empty disables it.
	FallbackEndpoint string
	// KnownSources are returned when every endpoint fails or finds nothing.
	KnownSources []Result
	QueryDelay   time.Duration // pause between queries in SearchMany
	ItemDelay    time.Duration // pause between pages in Ingest
}

// Rate limiter keys.
const (
	paceQuery = "query"
	paceItem  = "item"
)

// Client runs searches and ingests their results.
type Client struct {
	fetcher      Fetcher
	endpoint     string
	fallback     string
	knownSources []Result
	queryLimiter *ratelimit.RateLimiter
	itemLimiter  *ratelimit.RateLimiter
}

// NewClient creates a search client.
func NewClient(fetcher Fetcher, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	return &Client{
		fetcher:      fetcher,
		endpoint:     opts.Endpoint,
		fallback:     opts.FallbackEndpoint,
		knownSources: opts.KnownSources,
		queryLimiter: ratelimit.NewRateLimiter(opts.QueryDelay),
		itemLimiter:  ratelimit.NewRateLimiter(opts.ItemDelay),
	}
}

// SearchURL returns the results page URL for query.
func (c *Client) SearchURL(query string) string {
	return withQuery(c.endpoint, "q", query)
}

func withQuery(endpoint string, params ...string) string {
	var b strings.Builder
	b.WriteString(endpoint)
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	for i := 0; i+1 < len(params); i += 2 {
		b.WriteString(sep)
		b.WriteString(params[i])
		b.WriteString("=")
		b.WriteString(url.QueryEscape(params[i+1]))
		sep = "&"
	}
	return b.String()
}

// Search returns up to max results for query. When the primary
// endpoint fails or finds nothing, the fallback endpoint is tried, then
// the known sources.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	results, err := c.searchEndpoint(ctx, c.SearchURL(query), query, max, ParseResults)
	if len(results) > 0 || ctx.Err() != nil {
		return tagQuery(results, query), err
	}
	slog.Warn("Primary search found nothing", "query", query, "error", err)

	if c.fallback != "" {
		params := []string{"q", query}
		if max > 0 {
			params = append(params, "num", strconv.Itoa(max))
		}
		fallbackURL := withQuery(c.fallback, params...)
		var fbErr error
		results, fbErr = c.searchEndpoint(ctx, fallbackURL, query, max, ParseAlternativeResults)
		if len(results) > 0 || ctx.Err() != nil {
			return tagQuery(results, query), fbErr
		}
		slog.Warn("Fallback search found nothing", "query", query, "error", fbErr)
		if fbErr != nil {
			err = fbErr
		}
	}

	if len(c.knownSources) > 0 {
		known := append([]Result(nil), c.knownSources...)
		if max > 0 && len(known) > max {
			known = known[:max]
		}
		slog.Info("Using known sources", "query", query, "results", len(known))
		return tagQuery(known, query), nil
	}
	return nil, err
}

func (c *Client) searchEndpoint(ctx context.Context, searchURL, query string, max int, parse func([]byte, int) ([]Result, error)) ([]Result, error) {
	slog.Info("Searching", "query", query, "url", searchURL)

	doc, err := c.fetcher.FetchDocument(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results for %q: %w", query, err)
	}

	results, err := parse(doc.HTML, max)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results for %q: %w", query, err)
	}

	slog.Info("Search finished", "query", query, "url", searchURL, "results", len(results))
	return results, nil
}

func tagQuery(results []Result, query string) []Result {
	for i := range results {
		results[i].Query = query
	}
	return results
}

// SearchMany runs queries one after another, keeping at most perQuery
// results from each and at most maxTotal overall. Results are
// de-duplicated by URL. A failing query is logged and skipped.
func (c *Client) SearchMany(ctx context.Context, queries []string, perQuery, maxTotal int) ([]Result, error) {
	runID := uuid.NewString()
	slog.Info("Starting multi-query search", "run_id", runID, "queries", len(queries), "max_total", maxTotal)

	var all []Result
	seen := make(map[string]bool)

	for i, query := range queries {
		if maxTotal > 0 && len(all) >= maxTotal {
			slog.Info("Result limit reached", "run_id", runID, "max_total", maxTotal)
			break
		}
		if err := c.queryLimiter.Wait(ctx, paceQuery); err != nil {
			return all, err
		}

		results, err := c.Search(ctx, query, perQuery)
		c.queryLimiter.Done(paceQuery)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			slog.Warn("Query failed, skipping", "run_id", runID, "query", query, "index", i, "error", err)
			continue
		}

		for _, r := range results {
			if seen[r.URL] || (maxTotal > 0 && len(all) >= maxTotal) {
				continue
			}
			seen[r.URL] = true
			all = append(all, r)
		}

		slog.Info("Query done",
			"run_id", runID,
			"query", query,
			"index", i+1,
			"of", len(queries),
			"found", len(results),
			"unique_total", len(all))
	}

	return all, nil
}

// Ingest fetches each result and keeps pages whose content is longer
// than 50 characters, stopping after max pages. Failures are logged and
// skipped.
func (c *Client) Ingest(ctx context.Context, results []Result, max int) ([]Page, error) {
	var pages []Page
	for i, r := range results {
		if max > 0 && len(pages) >= max {
			break
		}
		if err := c.itemLimiter.Wait(ctx, paceItem); err != nil {
			return pages, err
		}

		p, err := c.fetcher.Fetch(ctx, r.URL)
		c.itemLimiter.Done(paceItem)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			slog.Warn("Failed to fetch search result", "url", r.URL, "index", i, "error", err)
			continue
		}
		if utf8.RuneCountInString(p.Content) <= minContentRunes {
			slog.Info("Search result has too little content", "url", r.URL, "chars", utf8.RuneCountInString(p.Content))
			continue
		}

		title := p.Title
		if title == "" {
			title = r.Title
		}
		pages = append(pages, Page{
			Result:    r,
			URL:       p.FinalURL,
			Title:     title,
			Content:   p.Content,
			Source:    p.Source,
			Metadata:  p.Metadata,
			FetchedAt: time.Now().UTC(),
		})
		slog.Info("Ingested search result", "url", r.URL, "title", title, "chars", len(p.Content))
	}
	return pages, nil
}

// ParseResults extracts search hits from a results page. Structured
// result blocks are read first; if none yields a hit, every external
// link with a long enough text is taken instead.
func ParseResults(html []byte, max int) ([]Result, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []Result
	full := func() bool { return max > 0 && len(results) >= max }

	dom.Find(".result, .web-result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if full() {
			return false
		}
		anchor := s.Find(".result__a, h2 a").First()
		title := strings.TrimSpace(anchor.Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("a").First().Text())
		}
		href, _ := anchor.Attr("href")
		if href == "" {
			href = onclickTarget(s.Find("a").First())
		}
		target, ok := resolveResultURL(href)
		if title == "" || !ok {
			return true
		}
		results = append(results, Result{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return true
	})

	if len(results) > 0 {
		return results, nil
	}

	dom.Find(`a[href*="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if full() {
			return false
		}
		title := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		target, ok := resolveResultURL(href)
		if !ok || utf8.RuneCountInString(title) <= minFallbackTitleRunes {
			return true
		}
		snippet := strings.TrimSpace(a.Closest("div, article, section").Text())
		results = append(results, Result{Title: title, URL: target, Snippet: truncateRunes(snippet, fallbackSnippetRunes)})
		return true
	})

	return results, nil
}

// resolveResultURL unwraps redirect links carrying the target in an uddg
// parameter and promotes protocol-relative URLs to https.
func resolveResultURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	if strings.Contains(href, "uddg=") {
		raw := href
		if strings.HasPrefix(raw, "//") {
			raw = "https:" + raw
		}
		if u, err := url.Parse(raw); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				href = target
			}
		}
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func onclickTarget(a *goquery.Selection) string {
	onclick, _ := a.Attr("onclick")
	const marker = "uddg='"
	i := strings.Index(onclick, marker)
	if i < 0 {
		return ""
	}
	rest := onclick[i+len(marker):]
	if j := strings.Index(rest, "'"); j >= 0 {
		if decoded, err := url.QueryUnescape(rest[:j]); err == nil {
			return decoded
		}
		return rest[:j]
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
