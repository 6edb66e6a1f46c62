package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpfetch "github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Renderer loads a URL in a real browser and returns the rendered HTML.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// BrowserOptions configures the headless tier.
type BrowserOptions struct {
	UserAgent   string
	Timeout     time.Duration // per render
	SettleDelay time.Duration // wait after DOM ready
	ExecPath    string        // empty: let chromedp locate Chrome
	// Blocked resource types are failed before they hit the network.
	Blocked []network.ResourceType
}

// DefaultBlockedResources are skipped during render for speed.
var DefaultBlockedResources = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeStylesheet,
	network.ResourceTypeFont,
	network.ResourceTypeMedia,
}

// ChromeRenderer renders pages with a fresh headless Chrome per call.
// No browser state survives between calls.
type ChromeRenderer struct {
	opts BrowserOptions
}

// NewChromeRenderer creates a renderer. Zero-valued options fall back to
// a 30s timeout, a 2s settle delay and DefaultBlockedResources.
func NewChromeRenderer(opts BrowserOptions) *ChromeRenderer {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Blocked == nil {
		opts.Blocked = DefaultBlockedResources
	}
	return &ChromeRenderer{opts: opts}
}

// Render acquires a browser, renders rawURL and releases the browser on
// every exit path.
func (r *ChromeRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	session, err := openBrowser(ctx, r.opts)
	if err != nil {
		return "", err
	}
	defer session.Close()

	return session.render(rawURL, r.opts)
}

// browserSession owns one Chrome process for the duration of one render.
type browserSession struct {
	ctx           context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

func openBrowser(parent context.Context, opts BrowserOptions) (*browserSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	s := &browserSession{ctx: browserCtx, cancelAlloc: cancelAlloc, cancelBrowser: cancelBrowser}

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &PermanentError{Tier: TierBrowser, Reason: "browser not available", Err: err}
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// Close shuts the browser down and releases its contexts. Safe to call twice.
func (s *browserSession) Close() {
	if s.cancelBrowser != nil {
		if err := chromedp.Cancel(s.ctx); err != nil {
			slog.Debug("Browser cancel returned error", "error", err)
		}
		s.cancelBrowser()
		s.cancelBrowser = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
}

func (s *browserSession) render(rawURL string, opts BrowserOptions) (string, error) {
	blocked := make(map[network.ResourceType]bool, len(opts.Blocked))
	patterns := make([]*cdpfetch.RequestPattern, 0, len(opts.Blocked))
	for _, rt := range opts.Blocked {
		blocked[rt] = true
		patterns = append(patterns, &cdpfetch.RequestPattern{URLPattern: "*", ResourceType: rt})
	}

	browserCtx := s.ctx
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		paused, ok := ev.(*cdpfetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(browserCtx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(browserCtx, c.Target)
			var err error
			if blocked[paused.ResourceType] {
				err = cdpfetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			} else {
				err = cdpfetch.ContinueRequest(paused.RequestID).Do(execCtx)
			}
			if err != nil {
				slog.Debug("Request interception failed", "url", paused.Request.URL, "error", err)
			}
		}()
	})

	runCtx, cancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var html string
	actions := []chromedp.Action{}
	if len(patterns) > 0 {
		actions = append(actions, cdpfetch.Enable().WithPatterns(patterns))
	}
	actions = append(actions,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", rawURL, err)
	}
	return html, nil
}

// BrowserFetcher adapts a Renderer to the Fetcher capability.
type BrowserFetcher struct {
	renderer Renderer
}

// NewBrowserFetcher wraps renderer as the browser tier.
func NewBrowserFetcher(renderer Renderer) *BrowserFetcher {
	return &BrowserFetcher{renderer: renderer}
}

// Tier implements Fetcher.
func (b *BrowserFetcher) Tier() Tier { return TierBrowser }

// Fetch renders rawURL once.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	html, err := b.renderer.Render(ctx, rawURL)
	if err != nil {
		var pe *PermanentError
		if errors.As(err, &pe) {
			if pe.URL == "" {
				pe.URL = rawURL
			}
			return nil, pe
		}
		return nil, &TransientError{URL: rawURL, Tier: TierBrowser, Err: err}
	}
	if html == "" {
		return nil, &TransientError{URL: rawURL, Tier: TierBrowser, Err: errors.New("empty render")}
	}
	return &Document{
		URL:       rawURL,
		FinalURL:  rawURL,
		HTML:      []byte(html),
		Tier:      TierBrowser,
		FetchedAt: time.Now().UTC(),
	}, nil
}
