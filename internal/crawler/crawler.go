// Package crawler provides bounded breadth-first discovery of in-domain
// pages. A run is strictly sequential: one page is fetched and scanned,
// the politeness delay elapses, then the next page starts.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/campuscrawl/internal/extract"
	"github.com/masahif/campuscrawl/internal/parser"
	"github.com/masahif/campuscrawl/internal/ratelimit"
)

// Options configures a DomainCrawler.
type Options struct {
	Domain    string        // target domain; empty means the start URL's host
	PageDelay time.Duration // pause after each page before the next starts
}

// DomainCrawler discovers in-domain URLs from a start page.
type DomainCrawler struct {
	processor   PageProcessor
	rateLimiter *ratelimit.RateLimiter
	domain      string
}

// NewDomainCrawler creates a crawler that scans pages through fetcher.
func NewDomainCrawler(fetcher DocumentFetcher, opts Options) *DomainCrawler {
	return NewDomainCrawlerWithProcessor(NewPageProcessor(fetcher), opts)
}

// NewDomainCrawlerWithProcessor creates a crawler with a custom page processor.
func NewDomainCrawlerWithProcessor(processor PageProcessor, opts Options) *DomainCrawler {
	return &DomainCrawler{
		processor:   processor,
		rateLimiter: ratelimit.NewRateLimiter(opts.PageDelay),
		domain:      opts.Domain,
	}
}

// Discover runs a BFS from startURL. Pages are visited at most once,
// never deeper than maxDepth hops, and at most maxPages are scanned. A
// page that fails to scan is recorded and skipped. Cancelling ctx stops
// the run and returns the partial result with ctx's error.
func (c *DomainCrawler) Discover(ctx context.Context, startURL string, maxDepth, maxPages int) (*Result, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Hostname() == "" {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", maxDepth)
	}
	if maxPages < 1 {
		return nil, fmt.Errorf("max pages must be positive, got %d", maxPages)
	}

	domain := c.domain
	if domain == "" {
		domain = start.Hostname()
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartURL:  startURL,
		Domain:    domain,
		StartedAt: time.Now().UTC(),
	}

	slog.Info("Starting discovery",
		"run_id", result.RunID,
		"start_url", startURL,
		"domain", domain,
		"max_depth", maxDepth,
		"max_pages", maxPages)

	state := newCrawlState()
	state.enqueue(startURL, 0)

	var runErr error
	for len(state.visited) < maxPages {
		item, ok := state.dequeue()
		if !ok {
			break
		}
		if state.visited[item.url] || item.depth > maxDepth || !parser.InDomain(parser.HostOf(item.url), domain) {
			continue
		}

		if err := c.rateLimiter.Wait(ctx, domain); err != nil {
			runErr = err
			break
		}

		state.visited[item.url] = true
		result.Visited = append(result.Visited, Visit{URL: item.url, Depth: item.depth})

		urls, err := c.processor.Process(ctx, item.url)
		c.rateLimiter.Done(domain)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			slog.Warn("Page scan failed, skipping", "run_id", result.RunID, "url", item.url, "error", err)
			result.Failures = append(result.Failures, Failure{URL: item.url, Error: err.Error()})
			continue
		}

		c.absorb(state, urls, item, domain, maxDepth)

		slog.Debug("Visited page",
			"run_id", result.RunID,
			"url", item.url,
			"depth", item.depth,
			"found", len(urls),
			"visited", len(state.visited),
			"queued", len(state.queue))
	}

	result.DiscoveredURLs = sortedKeys(state.discovered)
	result.Domains = sortedKeys(state.domains)
	result.Subdomains = sortedKeys(state.subdomains)
	result.TotalURLs = len(state.seen)
	result.Duration = time.Since(result.StartedAt)

	slog.Info("Discovery finished",
		"run_id", result.RunID,
		"visited", len(result.Visited),
		"discovered", len(result.DiscoveredURLs),
		"domains", len(result.Domains),
		"subdomains", len(result.Subdomains),
		"failures", len(result.Failures),
		"duration", result.Duration)

	return result, runErr
}

// absorb partitions the URLs found on one page and enqueues the
// in-domain pages that are still within the depth budget.
func (c *DomainCrawler) absorb(state *crawlState, urls []string, from queueItem, domain string, maxDepth int) {
	for _, u := range urls {
		state.seen[u] = true

		host := parser.HostOf(u)
		if d, sub, ok := parser.SplitHost(host); ok {
			state.domains[d] = true
			if sub != "" {
				state.subdomains[host] = true
			} else {
				state.subdomains[d] = true
			}
		}

		if !parser.InDomain(host, domain) {
			continue
		}
		state.discovered[u] = true

		if from.depth < maxDepth && !state.visited[u] && extract.IsPageURL(u) {
			state.enqueue(u, from.depth+1)
		}
	}
}
