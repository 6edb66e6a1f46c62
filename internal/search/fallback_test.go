package search

import (
	"context"
	"testing"
)

const googleHTML = `<html><body>
<div class="g" data-ved="1">
  <a href="/url?q=https://www.gtu.edu.tr/tr/haber/42&amp;sa=U"><h3>Yeni Araştırma Merkezi Açıldı</h3></a>
  <div class="VwiC3b">Merkez bugün açıldı.</div>
  <div data-ved="2"><a href="/url?q=https://www.gtu.edu.tr/tr/haber/42&amp;sa=U"><h3>Yeni Araştırma Merkezi Açıldı</h3></a></div>
</div>
<div class="tF2Cxc">
  <a href="https://www.gtu.edu.tr/en/news/7"><h3 class="LC20lb">Campus News Item</h3></a>
  <span class="st">English snippet</span>
</div>
<div class="g"><a href="/url?q=https://www.gtu.edu.tr/kisa"><h3>Kısa</h3></a></div>
<div class="g"><a href="/search?q=other"><h3>Related searches here</h3></a></div>
</body></html>`

func TestParseAlternativeResults(t *testing.T) {
	results, err := ParseAlternativeResults([]byte(googleHTML), 0)
	if err != nil {
		t.Fatalf("ParseAlternativeResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].URL != "https://www.gtu.edu.tr/tr/haber/42" || results[0].Snippet != "Merkez bugün açıldı." {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[1].URL != "https://www.gtu.edu.tr/en/news/7" || results[1].Title != "Campus News Item" {
		t.Errorf("Unexpected second result: %+v", results[1])
	}

	limited, _ := ParseAlternativeResults([]byte(googleHTML), 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit of 1, got %d", len(limited))
	}
}

func TestUnwrapGoogleURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/url?q=https://a.edu.tr/x&sa=U", "https://a.edu.tr/x"},
		{"/url?q=https%3A%2F%2Fa.edu.tr%2Fy", "https://a.edu.tr/y"},
		{"https://a.edu.tr/z", "https://a.edu.tr/z"},
		{"/url?sa=U", "/url?sa=U"},
	}
	for _, tt := range tests {
		if got := unwrapGoogleURL(tt.in); got != tt.want {
			t.Errorf("unwrapGoogleURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchFallsBackToAlternativeEndpoint(t *testing.T) {
	opts := Options{Endpoint: "http://search.local/", FallbackEndpoint: "http://alt.local/search"}
	c := NewClient(nil, opts)
	f := &stubFetcher{
		docs: map[string]string{
			c.SearchURL("gtu"):                    "<html><body>nothing here</body></html>",
			"http://alt.local/search?q=gtu&num=5": googleHTML,
		},
	}
	c.fetcher = f

	results, err := c.Search(context.Background(), "gtu", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 || results[0].Query != "gtu" {
		t.Errorf("Expected alternative results tagged with query, got %+v", results)
	}
	if len(f.calls) != 2 {
		t.Errorf("Expected primary then fallback fetch, got %v", f.calls)
	}
}

func TestSearchFallsBackOnPrimaryError(t *testing.T) {
	c := NewClient(nil, Options{Endpoint: "http://search.local/", FallbackEndpoint: "http://alt.local/search"})
	c.fetcher = &stubFetcher{
		docs: map[string]string{"http://alt.local/search?q=gtu": googleHTML},
		fail: map[string]bool{c.SearchURL("gtu"): true},
	}

	results, err := c.Search(context.Background(), "gtu", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 alternative results, got %+v", results)
	}
}

func TestSearchUsesKnownSourcesLast(t *testing.T) {
	c := NewClient(nil, Options{
		Endpoint:         "http://search.local/",
		FallbackEndpoint: "http://alt.local/search",
		KnownSources:     DefaultKnownSources(),
	})
	f := &stubFetcher{fail: map[string]bool{c.SearchURL("gtu"): true}}
	c.fetcher = f

	results, err := c.Search(context.Background(), "gtu", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected known sources cut to 2, got %+v", results)
	}
	if results[0].URL != "https://www.gtu.edu.tr" || results[1].Query != "gtu" {
		t.Errorf("Unexpected known sources: %+v", results)
	}
	if len(f.calls) != 2 {
		t.Errorf("Expected both endpoints tried first, got %v", f.calls)
	}

	// The list itself must not be modified by tagging
	if DefaultKnownSources()[0].Query != "" || c.knownSources[0].Query != "" {
		t.Error("Known sources were mutated")
	}
}

func TestSearchWithoutFallbackReportsError(t *testing.T) {
	c := NewClient(nil, Options{Endpoint: "http://search.local/"})
	c.fetcher = &stubFetcher{fail: map[string]bool{c.SearchURL("gtu"): true}}

	if _, err := c.Search(context.Background(), "gtu", 3); err == nil {
		t.Error("Expected error when the only endpoint fails")
	}
}
