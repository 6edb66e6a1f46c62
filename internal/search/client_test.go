package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/masahif/campuscrawl/internal/fetch"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const resultsHTML = `<html><body>
<div class="result">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.gtu.edu.tr%2Fhaber%2F1&rut=x">GTÜ yeni laboratuvar açtı</a></h2>
  <a class="result__snippet">Gebze Teknik Üniversitesi yeni laboratuvarını açtı.</a>
</div>
<div class="result">
  <h2><a class="result__a" href="//www.gtu.edu.tr/duyuru/2">Duyuru</a></h2>
</div>
<div class="web-result">
  <h2><a href="https://example.org/page">Example page</a></h2>
</div>
<div class="result">
  <h2><a class="result__a" href="javascript:void(0)">Broken</a></h2>
</div>
</body></html>`

// stubFetcher serves canned documents and pages keyed by URL.
type stubFetcher struct {
	docs  map[string]string
	pages map[string]*fetch.Page
	fail  map[string]bool
	calls []string
}

func (f *stubFetcher) FetchDocument(_ context.Context, rawURL string) (*fetch.Document, error) {
	f.calls = append(f.calls, rawURL)
	if f.fail[rawURL] {
		return nil, errors.New("fetch failed")
	}
	html, ok := f.docs[rawURL]
	if !ok {
		return nil, errors.New("no such document")
	}
	return &fetch.Document{URL: rawURL, FinalURL: rawURL, HTML: []byte(html)}, nil
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	f.calls = append(f.calls, rawURL)
	if f.fail[rawURL] {
		return nil, errors.New("fetch failed")
	}
	p, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("no such page")
	}
	return p, nil
}

func resultsPage(urls ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, u := range urls {
		fmt.Fprintf(&b, `<div class="result"><a class="result__a" href="%s">Result %d</a></div>`, u, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestParseResults(t *testing.T) {
	results, err := ParseResults([]byte(resultsHTML), 0)
	if err != nil {
		t.Fatalf("ParseResults failed: %v", err)
	}

	want := []Result{
		{Title: "GTÜ yeni laboratuvar açtı", URL: "https://www.gtu.edu.tr/haber/1", Snippet: "Gebze Teknik Üniversitesi yeni laboratuvarını açtı."},
		{Title: "Duyuru", URL: "https://www.gtu.edu.tr/duyuru/2"},
		{Title: "Example page", URL: "https://example.org/page"},
	}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for i, w := range want {
		if results[i] != w {
			t.Errorf("Result %d: expected %+v, got %+v", i, w, results[i])
		}
	}
}

func TestParseResultsLimit(t *testing.T) {
	results, err := ParseResults([]byte(resultsHTML), 1)
	if err != nil {
		t.Fatalf("ParseResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestParseResultsFallbackLinks(t *testing.T) {
	html := `<html><body>
<section><p>Intro text around the link</p><a href="https://www.gtu.edu.tr/etkinlik/5">Bahar şenliği programı</a></section>
<div><a href="https://example.org/">Short</a></div>
<div><a href="/relative/path">Relative link with long title</a></div>
</body></html>`

	results, err := ParseResults([]byte(html), 0)
	if err != nil {
		t.Fatalf("ParseResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 fallback result, got %d: %+v", len(results), results)
	}
	r := results[0]
	if r.URL != "https://www.gtu.edu.tr/etkinlik/5" {
		t.Errorf("Unexpected URL %q", r.URL)
	}
	if !strings.Contains(r.Snippet, "Intro text") {
		t.Errorf("Expected snippet from enclosing section, got %q", r.Snippet)
	}
}

func TestResolveResultURL(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"https://a.edu.tr/x", "https://a.edu.tr/x", true},
		{"//a.edu.tr/x", "https://a.edu.tr/x", true},
		{"/l/?uddg=http%3A%2F%2Fb.edu.tr%2Fy", "http://b.edu.tr/y", true},
		{"//duckduckgo.com/l/?uddg=%2F%2Fc.edu.tr%2Fz", "https://c.edu.tr/z", true},
		{"mailto:info@a.edu.tr", "", false},
		{"/relative", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveResultURL(tt.href)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resolveResultURL(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSearchURL(t *testing.T) {
	c := NewClient(&stubFetcher{}, Options{})
	got := c.SearchURL("GTÜ haberler")
	want := DefaultEndpoint + "?q=" + url.QueryEscape("GTÜ haberler")
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	c = NewClient(&stubFetcher{}, Options{Endpoint: "http://search.local/html/?kl=tr-tr"})
	if got := c.SearchURL("a b"); got != "http://search.local/html/?kl=tr-tr&q=a+b" {
		t.Errorf("Unexpected URL with existing query: %q", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient(&stubFetcher{}, Options{})
	if _, err := c.Search(context.Background(), "  ", 10); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchMany(t *testing.T) {
	c := NewClient(nil, Options{Endpoint: "http://search.local/"})
	f := &stubFetcher{
		docs: map[string]string{
			c.SearchURL("q1"): resultsPage("https://a.edu.tr/1", "https://a.edu.tr/2"),
			c.SearchURL("q3"): resultsPage("https://a.edu.tr/2", "https://a.edu.tr/3", "https://a.edu.tr/4"),
		},
		fail: map[string]bool{c.SearchURL("q2"): true},
	}
	c.fetcher = f

	results, err := c.SearchMany(context.Background(), []string{"q1", "q2", "q3"}, 10, 0)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}

	var urls []string
	for _, r := range results {
		urls = append(urls, r.URL)
	}
	want := "https://a.edu.tr/1 https://a.edu.tr/2 https://a.edu.tr/3 https://a.edu.tr/4"
	if got := strings.Join(urls, " "); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if results[2].Query != "q3" {
		t.Errorf("Expected query to be recorded, got %q", results[2].Query)
	}
}

func TestSearchManyLimits(t *testing.T) {
	c := NewClient(nil, Options{Endpoint: "http://search.local/"})
	f := &stubFetcher{docs: map[string]string{
		c.SearchURL("q1"): resultsPage("https://a.edu.tr/1", "https://a.edu.tr/2", "https://a.edu.tr/3"),
		c.SearchURL("q2"): resultsPage("https://a.edu.tr/4", "https://a.edu.tr/5"),
		c.SearchURL("q3"): resultsPage("https://a.edu.tr/6"),
	}}
	c.fetcher = f

	results, err := c.SearchMany(context.Background(), []string{"q1", "q2", "q3"}, 2, 3)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[2].URL != "https://a.edu.tr/4" {
		t.Errorf("Expected per-query cap to skip /3, got %q", results[2].URL)
	}
	if len(f.calls) != 2 {
		t.Errorf("Expected search to stop after the limit, got %d calls", len(f.calls))
	}
}

func TestSearchManyQueryDelay(t *testing.T) {
	c := NewClient(nil, Options{Endpoint: "http://search.local/", QueryDelay: 50 * time.Millisecond})
	c.fetcher = &stubFetcher{docs: map[string]string{
		c.SearchURL("q1"): resultsPage("https://a.edu.tr/1"),
		c.SearchURL("q2"): resultsPage("https://a.edu.tr/2"),
		c.SearchURL("q3"): resultsPage("https://a.edu.tr/3"),
	}}

	start := time.Now()
	if _, err := c.SearchMany(context.Background(), []string{"q1", "q2", "q3"}, 10, 0); err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected queries to be paced, finished in %v", elapsed)
	}
}

func TestIngest(t *testing.T) {
	long := strings.Repeat("Gebze Teknik Üniversitesi haber içeriği. ", 3)
	f := &stubFetcher{
		pages: map[string]*fetch.Page{
			"https://a.edu.tr/1": {FinalURL: "https://a.edu.tr/1", Title: "Haber", Content: long, Source: "a.edu.tr"},
			"https://a.edu.tr/2": {FinalURL: "https://a.edu.tr/2", Title: "Kısa", Content: "çok kısa", Source: "a.edu.tr"},
			"https://a.edu.tr/4": {FinalURL: "https://a.edu.tr/4/", Content: long, Source: "a.edu.tr"},
		},
		fail: map[string]bool{"https://a.edu.tr/3": true},
	}
	c := NewClient(f, Options{})

	results := []Result{
		{Title: "r1", URL: "https://a.edu.tr/1"},
		{Title: "r2", URL: "https://a.edu.tr/2"},
		{Title: "r3", URL: "https://a.edu.tr/3"},
		{Title: "Search title", URL: "https://a.edu.tr/4"},
	}
	pages, err := c.Ingest(context.Background(), results, 0)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	if pages[0].Title != "Haber" || pages[0].Source != "a.edu.tr" {
		t.Errorf("Unexpected first page: %+v", pages[0])
	}
	if pages[1].Title != "Search title" {
		t.Errorf("Expected search title fallback, got %q", pages[1].Title)
	}
	if pages[1].URL != "https://a.edu.tr/4/" {
		t.Errorf("Expected final URL, got %q", pages[1].URL)
	}

	limited, err := c.Ingest(context.Background(), results, 1)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 page with limit, got %d", len(limited))
	}
}

func TestIngestCancelled(t *testing.T) {
	c := NewClient(&stubFetcher{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Ingest(ctx, []Result{{URL: "https://a.edu.tr/1"}}, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSearchOverHTTP(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, resultsHTML)
	}))
	defer server.Close()

	engine := fetch.NewEngine(0, fetch.Strategy{
		Fetcher: fetch.NewStaticFetcher(fetch.StaticOptions{Timeout: 5 * time.Second}),
		Retry:   fetch.RetryPolicy{MaxAttempts: 1},
	})
	c := NewClient(engine, Options{Endpoint: server.URL + "/html/"})

	results, err := c.Search(context.Background(), "GTÜ haberler", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "GTÜ haberler" {
		t.Errorf("Server received query %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://www.gtu.edu.tr/haber/1" || results[0].Query != "GTÜ haberler" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
}
