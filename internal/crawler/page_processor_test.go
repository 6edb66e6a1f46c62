package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/masahif/campuscrawl/internal/fetch"
)

type stubFetcher struct {
	doc *fetch.Document
	err error
}

func (s *stubFetcher) FetchDocument(_ context.Context, _ string) (*fetch.Document, error) {
	return s.doc, s.err
}

func TestPageProcessor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test-page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`
<!DOCTYPE html>
<html>
<head>
	<title>Test Page</title>
	<link rel="canonical" href="https://example.com/canonical">
</head>
<body>
	<a href="/internal-link">Internal Link</a>
	<a href="https://external.com/page#top">External Link</a>
	<a href="mailto:info@example.com">Mail</a>
	<img src="/img/photo.jpg">
</body>
</html>
			`))
		case "/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not Found"))
		case "/non-html":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	defer server.Close()

	engine := fetch.NewEngine(0, fetch.Strategy{
		Fetcher: fetch.NewStaticFetcher(fetch.StaticOptions{Timeout: 5 * time.Second}),
		Retry:   fetch.RetryPolicy{MaxAttempts: 1},
	})
	processor := NewPageProcessor(engine)

	t.Run("HTML page", func(t *testing.T) {
		urls, err := processor.Process(context.Background(), server.URL+"/test-page")
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}

		want := map[string]bool{
			"https://example.com/canonical": true,
			server.URL + "/internal-link":   true,
			"https://external.com/page":     true,
			server.URL + "/img/photo.jpg":   true,
		}
		for _, u := range urls {
			if strings.HasPrefix(u, "mailto:") {
				t.Errorf("mailto URL leaked: %s", u)
			}
			delete(want, u)
		}
		if len(want) != 0 {
			t.Errorf("Missing URLs %v in %v", want, urls)
		}
	})

	t.Run("404 page", func(t *testing.T) {
		_, err := processor.Process(context.Background(), server.URL+"/404")
		if !fetch.IsPermanent(err) {
			t.Errorf("Expected permanent error for 404, got %v", err)
		}
	})

	t.Run("Non-HTML content", func(t *testing.T) {
		_, err := processor.Process(context.Background(), server.URL+"/non-html")
		if err == nil {
			t.Error("Expected error for non-HTML content")
		}
	})
}

func TestPageProcessorResolvesAgainstFinalURL(t *testing.T) {
	fetcher := &stubFetcher{doc: &fetch.Document{
		URL:      "https://www.gtu.edu.tr/old",
		FinalURL: "https://www.gtu.edu.tr/tr/new/",
		HTML:     []byte(`<html><body><a href="sayfa">Sayfa</a></body></html>`),
		Tier:     fetch.TierStatic,
	}}

	urls, err := NewPageProcessor(fetcher).Process(context.Background(), "https://www.gtu.edu.tr/old")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://www.gtu.edu.tr/tr/new/sayfa" {
		t.Errorf("Expected link resolved against final URL, got %v", urls)
	}
}

func TestPageProcessorFetchError(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := NewPageProcessor(&stubFetcher{err: sentinel}).Process(context.Background(), "https://example.com/")
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
}

func TestPageProcessorCustomSchemes(t *testing.T) {
	fetcher := &stubFetcher{doc: &fetch.Document{
		URL:  "https://example.com/",
		HTML: []byte(`<a href="http://example.com/plain">p</a><a href="https://example.com/secure">s</a>`),
	}}

	urls, err := NewPageProcessorWithSchemes(fetcher, []string{"https://"}).Process(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/secure" {
		t.Errorf("Expected only https URL, got %v", urls)
	}
}
