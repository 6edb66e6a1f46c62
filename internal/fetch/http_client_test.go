package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStaticFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("Expected default User-Agent, got '%s'", ua)
		}
		if al := r.Header.Get("Accept-Language"); al != DefaultAcceptLanguage {
			t.Errorf("Expected Accept-Language '%s', got '%s'", DefaultAcceptLanguage, al)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte("<html><body>Test Page</body></html>"))
	}))
	defer server.Close()

	f := NewStaticFetcher(StaticOptions{})
	defer f.Close()

	doc, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if doc.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", doc.StatusCode)
	}
	if string(doc.HTML) != "<html><body>Test Page</body></html>" {
		t.Errorf("Unexpected body '%s'", string(doc.HTML))
	}
	if doc.Metrics.TTFB < 20*time.Millisecond {
		t.Errorf("TTFB should be at least 20ms, got %v", doc.Metrics.TTFB)
	}
	if doc.Tier != TierStatic {
		t.Errorf("Expected static tier, got %s", doc.Tier)
	}
}

func TestStaticFetcherStatusClassification(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusGone, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewStaticFetcher(StaticOptions{}).Fetch(context.Background(), server.URL)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("Status %d: transient=%v, want %v (err=%v)", tt.status, IsTransient(err), tt.wantTransient, err)
			}
		})
	}
}

func TestStaticFetcherRedirects(t *testing.T) {
	mux := http.NewServeMux()
	for i := 0; i < 10; i++ {
		next := fmt.Sprintf("/r%d", i+1)
		mux.HandleFunc(fmt.Sprintf("/r%d", i), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, next, http.StatusFound)
		})
	}
	mux.HandleFunc("/r10", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>final</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewStaticFetcher(StaticOptions{MaxRedirects: 5})

	// r5 -> r10 is five redirects.
	doc, err := f.Fetch(context.Background(), server.URL+"/r5")
	if err != nil {
		t.Fatalf("Five redirects should be followed: %v", err)
	}
	if doc.FinalURL != server.URL+"/r10" {
		t.Errorf("Expected final URL %s, got %s", server.URL+"/r10", doc.FinalURL)
	}

	_, err = f.Fetch(context.Background(), server.URL+"/r4")
	if !IsPermanent(err) {
		t.Errorf("Six redirects should be a permanent failure, got %v", err)
	}
}

func TestStaticFetcherUnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	_, err := NewStaticFetcher(StaticOptions{}).Fetch(context.Background(), server.URL)
	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected PermanentError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "application/pdf") {
		t.Errorf("Expected reason to name the content type, got %q", pe.Reason)
	}
}

func TestStaticFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewStaticFetcher(StaticOptions{Timeout: 100 * time.Millisecond}).Fetch(context.Background(), server.URL)
	if !IsTransient(err) {
		t.Errorf("Timeout should be transient, got %v", err)
	}
}

func TestStaticFetcherDecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-9")
		// "Öğrenci" in ISO-8859-9 (Turkish)
		_, _ = w.Write([]byte{'<', 'p', '>', 0xD6, 0xF0, 'r', 'e', 'n', 'c', 'i', '<', '/', 'p', '>'})
	}))
	defer server.Close()

	doc, err := NewStaticFetcher(StaticOptions{}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(doc.HTML), "Öğrenci") {
		t.Errorf("Expected UTF-8 decoded body, got %q", string(doc.HTML))
	}
}

func TestStaticFetcherBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ogrenci" || pass != "gizli" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Intranet</body></html>"))
	}))
	defer server.Close()

	anon := NewStaticFetcher(StaticOptions{})
	defer anon.Close()
	if _, err := anon.Fetch(context.Background(), server.URL); !IsPermanent(err) {
		t.Errorf("Expected permanent error without credentials, got %v", err)
	}

	f := NewStaticFetcher(StaticOptions{Username: "ogrenci", Password: "gizli"})
	defer f.Close()
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Errorf("Expected authenticated fetch to succeed, got %v", err)
	}
}
