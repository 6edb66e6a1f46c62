package crawler

import (
	"sort"
	"time"
)

// Visit records one page the crawler scanned.
type Visit struct {
	URL   string
	Depth int
}

// Failure records a page whose scan failed.
type Failure struct {
	URL   string
	Error string
}

// Result is the outcome of one discovery run.
type Result struct {
	RunID          string
	StartURL       string
	Domain         string
	Visited        []Visit  // in visit order
	DiscoveredURLs []string // in-domain URLs, sorted
	Domains        []string // sorted
	Subdomains     []string // sorted full host names
	TotalURLs      int      // every absolute URL seen, in or out of domain
	Failures       []Failure
	StartedAt      time.Time
	Duration       time.Duration
}

// VisitedURLs returns the visited URLs in visit order.
func (r *Result) VisitedURLs() []string {
	out := make([]string, len(r.Visited))
	for i, v := range r.Visited {
		out[i] = v.URL
	}
	return out
}

type queueItem struct {
	url   string
	depth int
}

// crawlState is owned by a single Discover call.
type crawlState struct {
	visited    map[string]bool
	queued     map[string]bool
	queue      []queueItem
	seen       map[string]bool
	discovered map[string]bool
	domains    map[string]bool
	subdomains map[string]bool
}

func newCrawlState() *crawlState {
	return &crawlState{
		visited:    make(map[string]bool),
		queued:     make(map[string]bool),
		seen:       make(map[string]bool),
		discovered: make(map[string]bool),
		domains:    make(map[string]bool),
		subdomains: make(map[string]bool),
	}
}

func (s *crawlState) enqueue(url string, depth int) {
	if s.queued[url] {
		return
	}
	s.queued[url] = true
	s.queue = append(s.queue, queueItem{url: url, depth: depth})
}

func (s *crawlState) dequeue() (queueItem, bool) {
	if len(s.queue) == 0 {
		return queueItem{}, false
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item, true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
