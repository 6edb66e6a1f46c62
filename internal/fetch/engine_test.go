package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// scriptedFetcher returns the queued results in order, repeating the last.
type scriptedFetcher struct {
	tier    Tier
	results []error
	calls   int
	panics  bool
}

func (f *scriptedFetcher) Tier() Tier { return f.tier }

func (f *scriptedFetcher) Fetch(_ context.Context, rawURL string) (*Document, error) {
	f.calls++
	if f.panics {
		panic("boom")
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	if err := f.results[idx]; err != nil {
		return nil, err
	}
	return &Document{URL: rawURL, FinalURL: rawURL, HTML: []byte("<html><title>ok</title></html>"), Tier: f.tier}, nil
}

func transient(tier Tier) error {
	return &TransientError{URL: "u", Tier: tier, StatusCode: 503}
}

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxAttempts: n, BaseDelay: time.Millisecond}
}

func TestEngineStaticSuccess(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{nil}}
	browser := &scriptedFetcher{tier: TierBrowser, results: []error{nil}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)}, Strategy{browser, fastRetry(3)})

	doc, err := engine.FetchDocument(context.Background(), "https://example.edu/")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc.Tier != TierStatic {
		t.Errorf("Expected static tier, got %s", doc.Tier)
	}
	if browser.calls != 0 {
		t.Errorf("Browser tier should not run, got %d calls", browser.calls)
	}
}

func TestEngineRetriesThenSucceeds(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{transient(TierStatic), transient(TierStatic), nil}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)})

	if _, err := engine.FetchDocument(context.Background(), "https://example.edu/"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if static.calls != 3 {
		t.Errorf("Expected 3 static attempts, got %d", static.calls)
	}
}

func TestEngineEscalatesAfterTransientExhaustion(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{transient(TierStatic)}}
	browser := &scriptedFetcher{tier: TierBrowser, results: []error{transient(TierBrowser), nil}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)}, Strategy{browser, fastRetry(3)})

	doc, err := engine.FetchDocument(context.Background(), "https://example.edu/")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc.Tier != TierBrowser {
		t.Errorf("Expected browser tier, got %s", doc.Tier)
	}
	if static.calls != 3 || browser.calls != 2 {
		t.Errorf("Expected 3 static and 2 browser calls, got %d and %d", static.calls, browser.calls)
	}
}

func TestEngineStatusErrorEscalatesWithoutRetry(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{&PermanentError{URL: "u", Tier: TierStatic, StatusCode: 403}}}
	browser := &scriptedFetcher{tier: TierBrowser, results: []error{nil}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)}, Strategy{browser, fastRetry(3)})

	doc, err := engine.FetchDocument(context.Background(), "https://example.edu/blocked")
	if err != nil {
		t.Fatalf("Expected browser tier to recover a 403, got %v", err)
	}
	if doc.Tier != TierBrowser {
		t.Errorf("Expected browser tier document, got %s", doc.Tier)
	}
	if static.calls != 1 {
		t.Errorf("Status error should not be retried, got %d static calls", static.calls)
	}
	if browser.calls != 1 {
		t.Errorf("Expected one browser call, got %d", browser.calls)
	}
}

func TestEngineStatusErrorWithoutNextTier(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{&PermanentError{URL: "u", Tier: TierStatic, StatusCode: 404}}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)})

	_, err := engine.FetchDocument(context.Background(), "https://example.edu/missing")
	if !errors.Is(err, ErrExhausted) || !IsPermanent(err) {
		t.Fatalf("Expected exhausted permanent error, got %v", err)
	}
	if static.calls != 1 {
		t.Errorf("Status error should not be retried, got %d calls", static.calls)
	}
}

func TestEnginePermanentStopsImmediately(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{&PermanentError{URL: "u", Tier: TierStatic, Reason: "unsupported content type application/pdf"}}}
	browser := &scriptedFetcher{tier: TierBrowser, results: []error{nil}}
	engine := NewEngine(0, Strategy{static, fastRetry(3)}, Strategy{browser, fastRetry(3)})

	_, err := engine.FetchDocument(context.Background(), "https://example.edu/file")
	if !IsPermanent(err) {
		t.Fatalf("Expected permanent error, got %v", err)
	}
	if static.calls != 1 {
		t.Errorf("Permanent error should not be retried, got %d calls", static.calls)
	}
	if browser.calls != 0 {
		t.Errorf("Unsupported content should not escalate, got %d browser calls", browser.calls)
	}
}

func TestEngineExhausted(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{transient(TierStatic)}}
	browser := &scriptedFetcher{tier: TierBrowser, results: []error{transient(TierBrowser)}}
	engine := NewEngine(0, Strategy{static, fastRetry(2)}, Strategy{browser, fastRetry(2)})

	_, err := engine.FetchDocument(context.Background(), "https://example.edu/")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}
	var te *TransientError
	if !errors.As(err, &te) || te.Tier != TierBrowser {
		t.Errorf("Expected last error from browser tier, got %v", err)
	}
}

func TestEngineRecoversPanics(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, panics: true}
	engine := NewEngine(0, Strategy{static, fastRetry(2)})

	_, err := engine.FetchDocument(context.Background(), "https://example.edu/")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted after panics, got %v", err)
	}
	if static.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", static.calls)
	}
}

func TestEngineCache(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{nil}}
	engine := NewEngine(time.Minute, Strategy{static, fastRetry(1)})

	for i := 0; i < 3; i++ {
		if _, err := engine.FetchDocument(context.Background(), "https://example.edu/a"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if static.calls != 1 {
		t.Errorf("Expected 1 network call with cache, got %d", static.calls)
	}
}

func TestEngineContextCancelled(t *testing.T) {
	static := &scriptedFetcher{tier: TierStatic, results: []error{transient(TierStatic)}}
	engine := NewEngine(0, Strategy{static, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := engine.FetchDocument(ctx, "https://example.edu/")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultStaticRetry()
	if d := p.Delay(1); d != 2*time.Second {
		t.Errorf("Expected 2s after attempt 1, got %v", d)
	}
	if d := p.Delay(2); d != 4*time.Second {
		t.Errorf("Expected 4s after attempt 2, got %v", d)
	}
	if d := DefaultBrowserRetry().Delay(2); d != 6*time.Second {
		t.Errorf("Expected 6s after browser attempt 2, got %v", d)
	}
}

type fakeRenderer struct {
	html string
	err  error
}

func (r fakeRenderer) Render(context.Context, string) (string, error) { return r.html, r.err }

func TestBrowserFetcher(t *testing.T) {
	f := NewBrowserFetcher(fakeRenderer{html: "<html><body><main>Rendered</main></body></html>"})
	doc, err := f.Fetch(context.Background(), "https://example.edu/spa")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc.Tier != TierBrowser || doc.FinalURL != "https://example.edu/spa" {
		t.Errorf("Unexpected document: %+v", doc)
	}

	_, err = NewBrowserFetcher(fakeRenderer{err: errors.New("crash")}).Fetch(context.Background(), "https://example.edu/")
	if !IsTransient(err) {
		t.Errorf("Render failure should be transient, got %v", err)
	}

	_, err = NewBrowserFetcher(fakeRenderer{}).Fetch(context.Background(), "https://example.edu/")
	if !IsTransient(err) {
		t.Errorf("Empty render should be transient, got %v", err)
	}
}
