// Package extract turns a page's HTML into typed StructuredContent.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/masahif/campuscrawl/internal/fetch"
	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/parser"
	"github.com/masahif/campuscrawl/internal/textutil"
)

var (
	// ErrNotAPage is returned without fetching for URLs whose extension
	// marks them as assets or documents.
	ErrNotAPage = errors.New("url is not an html page")
	// ErrInsufficientContent is returned when cleanText has fewer than
	// model.MinWordCount words.
	ErrInsufficientContent = errors.New("content below word threshold")
)

// minParagraphRunes rejects paragraph-like nodes with less text.
const minParagraphRunes = 20

var nonPageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	".zip": true, ".rar": true, ".7z": true, ".gz": true, ".tar": true,
	".exe": true, ".dmg": true,
	".js": true, ".css": true,
	".mp3": true, ".mp4": true, ".avi": true,
}

const (
	strippedElements = "script, style, noscript, iframe, embed, object"
	walkedElements   = "h1, h2, h3, h4, h5, h6, p, div.content, div.text, article p, main p, a[href], img[src], ul, ol"
)

var skippedImageMarkers = []string{"icon", "logo", "button"}

// DocumentFetcher returns the raw HTML of a URL.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Extractor fetches pages and decomposes them.
type Extractor struct {
	fetcher DocumentFetcher
	domain  string
}

// New creates an extractor. domain decides Link.IsInternal; when empty
// the page's own host is used.
func New(fetcher DocumentFetcher, domain string) *Extractor {
	return &Extractor{fetcher: fetcher, domain: domain}
}

// IsPageURL reports whether rawURL may point at an HTML page.
func IsPageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return !nonPageExtensions[ext]
}

// Extract fetches rawURL and returns its structured content. Non-page
// URLs yield ErrNotAPage before any fetch; thin pages yield
// ErrInsufficientContent.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*model.StructuredContent, error) {
	if !IsPageURL(rawURL) {
		slog.Debug("Skipping non-page URL", "url", rawURL)
		return nil, ErrNotAPage
	}

	doc, err := e.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	content, err := Parse(doc.HTML, doc.BaseURL(), e.domain)
	if err != nil {
		return nil, err
	}
	content.URL = rawURL

	if content.WordCount < model.MinWordCount {
		slog.Info("Content below threshold", "url", rawURL, "word_count", content.WordCount)
		return nil, ErrInsufficientContent
	}

	slog.Debug("Extracted content",
		"url", rawURL,
		"tier", doc.Tier,
		"headers", len(content.Headers),
		"paragraphs", len(content.Paragraphs),
		"links", len(content.Links),
		"images", len(content.Images),
		"lists", len(content.Lists),
		"word_count", content.WordCount)

	return content, nil
}

// Parse decomposes htmlContent. pageURL resolves relative references;
// domain decides which links are internal. The word threshold is not
// applied here.
func Parse(htmlContent []byte, pageURL, domain string) (*model.StructuredContent, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if domain == "" {
		domain = base.Hostname()
	}

	dom.Find(strippedElements).Remove()

	w := &walker{base: base, domain: domain, content: &model.StructuredContent{
		URL:      pageURL,
		Language: model.DefaultLanguage,
	}}

	// A selector group matches in document order, each node once.
	dom.Find(walkedElements).Each(func(_ int, s *goquery.Selection) {
		w.visit(s)
	})

	c := w.content
	c.CleanText = buildCleanText(c)
	c.WordCount = len(strings.Fields(c.CleanText))
	c.ExtractedAt = time.Now().UTC()
	return c, nil
}

type walker struct {
	base    *url.URL
	domain  string
	order   int
	content *model.StructuredContent
}

func (w *walker) next() int {
	w.order++
	return w.order
}

func (w *walker) visit(s *goquery.Selection) {
	switch name := goquery.NodeName(s); name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := textutil.CollapseSpace(s.Text()); text != "" {
			w.content.Headers = append(w.content.Headers, model.Header{
				Level: int(name[1] - '0'),
				Text:  text,
				Order: w.next(),
			})
		}
	case "p", "div":
		if text := textutil.CollapseSpace(s.Text()); utf8.RuneCountInString(text) >= minParagraphRunes {
			w.content.Paragraphs = append(w.content.Paragraphs, model.Paragraph{Text: text, Order: w.next()})
		}
	case "a":
		w.visitLink(s)
	case "img":
		w.visitImage(s)
	case "ul", "ol":
		w.visitList(s, name)
	}
}

func (w *walker) visitLink(s *goquery.Selection) {
	href := strings.TrimSpace(s.AttrOr("href", ""))
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	abs, ok := w.resolve(href)
	if !ok {
		return
	}
	text := textutil.CollapseSpace(s.Text())
	if text == "" {
		text = abs.String()
	}
	w.content.Links = append(w.content.Links, model.Link{
		Text:       text,
		URL:        abs.String(),
		IsInternal: parser.InDomain(abs.Hostname(), w.domain),
		Order:      w.next(),
	})
}

func (w *walker) visitImage(s *goquery.Selection) {
	src := strings.TrimSpace(s.AttrOr("src", ""))
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return
	}
	abs, ok := w.resolve(src)
	if !ok {
		return
	}
	file := strings.ToLower(path.Base(abs.Path))
	for _, marker := range skippedImageMarkers {
		if strings.Contains(file, marker) {
			return
		}
	}
	w.content.Images = append(w.content.Images, model.Image{
		Alt:   textutil.CollapseSpace(s.AttrOr("alt", "")),
		Src:   abs.String(),
		Order: w.next(),
	})
}

func (w *walker) visitList(s *goquery.Selection, name string) {
	var items []string
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := textutil.CollapseSpace(li.Text()); text != "" {
			items = append(items, text)
		}
	})
	if len(items) == 0 {
		return
	}
	kind := model.ListUnordered
	if name == "ol" {
		kind = model.ListOrdered
	}
	w.content.Lists = append(w.content.Lists, model.List{Kind: kind, Items: items, Order: w.next()})
}

// resolve returns ref as an absolute http(s) URL.
func (w *walker) resolve(ref string) (*url.URL, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	abs := w.base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	return abs, true
}

// buildCleanText joins headers, then paragraphs, then list items.
// Link text is excluded.
func buildCleanText(c *model.StructuredContent) string {
	var parts []string
	for _, h := range c.Headers {
		parts = append(parts, h.Text)
	}
	for _, p := range c.Paragraphs {
		parts = append(parts, p.Text)
	}
	for _, l := range c.Lists {
		parts = append(parts, l.Items...)
	}
	return textutil.CollapseSpace(strings.Join(parts, " "))
}
