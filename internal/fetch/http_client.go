package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultUserAgent is a desktop Chrome string; many university sites
	// serve reduced markup to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// DefaultAcceptLanguage prefers Turkish, then English.
	DefaultAcceptLanguage = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"

	maxBodyBytes = 10 << 20
)

var errTooManyRedirects = errors.New("too many redirects")

// HTTPMetrics contains timing for one static request.
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
}

// StaticOptions configures the static tier.
type StaticOptions struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxRedirects   int
	// Basic auth credentials, sent when Username is set.
	Username string
	Password string
}

// StaticFetcher is the plain HTTP GET tier.
type StaticFetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	username       string
	password       string
}

// NewStaticFetcher creates the static tier. Zero-valued options fall back
// to a 20s timeout, 5 redirects and the default browser headers.
func NewStaticFetcher(opts StaticOptions) *StaticFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	maxRedirects := opts.MaxRedirects

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	return &StaticFetcher{
		client:         client,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		username:       opts.Username,
		password:       opts.Password,
	}
}

// Tier implements Fetcher.
func (s *StaticFetcher) Tier() Tier { return TierStatic }

// Fetch performs one GET and classifies the outcome. 5xx and network
// failures are transient; 4xx, redirect loops and non-HTML bodies are
// permanent.
func (s *StaticFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &PermanentError{URL: rawURL, Tier: TierStatic, Reason: "invalid request", Err: err}
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", s.acceptLanguage)
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	var metrics HTTPMetrics
	var dnsStart, connectStart, tlsStart, firstByte time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			metrics.DNSLookup = time.Since(dnsStart)
		},
		ConnectStart: func(string, string) { connectStart = time.Now() },
		ConnectDone: func(string, string, error) {
			metrics.TCPConnect = time.Since(connectStart)
		},
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			metrics.TLSHandshake = time.Since(tlsStart)
		},
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return nil, &PermanentError{URL: rawURL, Tier: TierStatic, Reason: "redirect limit", Err: err}
		}
		return nil, &TransientError{URL: rawURL, Tier: TierStatic, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if !firstByte.IsZero() {
		metrics.TTFB = firstByte.Sub(start)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &TransientError{URL: rawURL, Tier: TierStatic, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, &PermanentError{URL: rawURL, Tier: TierStatic, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, &PermanentError{URL: rawURL, Tier: TierStatic, Reason: "unsupported content type " + contentType}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransientError{URL: rawURL, Tier: TierStatic, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	metrics.DownloadTime = time.Since(start)

	body, err := decodeBody(raw, contentType)
	if err != nil {
		slog.Debug("Charset decoding failed, using raw body", "url", rawURL, "error", err)
		body = raw
	}

	slog.Debug("Static fetch complete",
		"url", rawURL,
		"status_code", resp.StatusCode,
		"ttfb_ms", metrics.TTFB.Milliseconds(),
		"download_ms", metrics.DownloadTime.Milliseconds(),
		"bytes", len(body))

	return &Document{
		URL:        rawURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       body,
		Tier:       TierStatic,
		Metrics:    metrics,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// Close releases idle connections.
func (s *StaticFetcher) Close() {
	s.client.CloseIdleConnections()
}

// isHTMLContentType accepts HTML, XHTML and a missing header.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// decodeBody converts the body to UTF-8 using the header charset, a meta
// tag, or content sniffing, in that order.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// hostOf returns the hostname of rawURL, or "" if it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
