package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/masahif/campuscrawl/internal/textutil"
)

// minBlockRunes is the length a content block must exceed to be chosen
// over the paragraph fallback.
const minBlockRunes = 100

var (
	staticContentSelectors  = []string{"article", "main", ".content", "#content", "body"}
	browserContentSelectors = []string{"article", "main", ".content", "body"}

	publishDateSelectors = []struct{ selector, attr string }{
		{`meta[property="article:published_time"]`, "content"},
		{`meta[name="article:published_time"]`, "content"},
		{`meta[itemprop="datePublished"]`, "content"},
		{`meta[name="date"]`, "content"},
		{`time[datetime]`, "datetime"},
	}
)

// Metadata holds auxiliary page data.
type Metadata struct {
	Description  string
	Image        string
	PublishedRaw string
	PublishedAt  time.Time // zero when PublishedRaw is empty or unparseable
}

// Page is the single-block view of a fetched document.
type Page struct {
	URL      string
	FinalURL string
	Title    string
	Content  string
	Metadata Metadata
	Source   string // hostname
	Tier     Tier
}

// BuildPage selects title, main content and metadata from doc.
func BuildPage(doc *Document) (*Page, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	dom.Find("script, style, noscript").Remove()

	base, _ := url.Parse(doc.BaseURL())

	page := &Page{
		URL:      doc.URL,
		FinalURL: doc.BaseURL(),
		Source:   hostOf(doc.BaseURL()),
		Tier:     doc.Tier,
	}

	if doc.Tier == TierBrowser {
		page.Title = firstNonEmpty(
			dom.Find("title").First().Text(),
			dom.Find("h1").First().Text(),
		)
		page.Content = selectRenderedContent(dom)
	} else {
		page.Title = firstNonEmpty(
			dom.Find("title").First().Text(),
			metaContent(dom, `meta[property="og:title"]`),
			dom.Find("h1").First().Text(),
		)
		page.Content = selectStaticContent(dom)
	}

	page.Metadata = extractMetadata(dom, base)
	return page, nil
}

// selectStaticContent returns the first block whose trimmed text is
// longer than minBlockRunes, falling back to all paragraph text.
func selectStaticContent(dom *goquery.Document) string {
	for _, sel := range staticContentSelectors {
		raw := strings.TrimSpace(dom.Find(sel).First().Text())
		if utf8.RuneCountInString(raw) > minBlockRunes {
			return textutil.CollapseSpace(raw)
		}
	}

	var parts []string
	dom.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := textutil.CollapseSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

// selectRenderedContent returns the first non-empty block of a rendered page.
func selectRenderedContent(dom *goquery.Document) string {
	for _, sel := range browserContentSelectors {
		if text := textutil.CollapseSpace(dom.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractMetadata(dom *goquery.Document, base *url.URL) Metadata {
	var md Metadata

	md.Description = firstNonEmpty(
		metaContent(dom, `meta[name="description"]`),
		metaContent(dom, `meta[property="og:description"]`),
	)

	image := metaContent(dom, `meta[property="og:image"]`)
	if image == "" {
		image, _ = dom.Find("img[src]").First().Attr("src")
	}
	md.Image = resolve(base, strings.TrimSpace(image))

	for _, ps := range publishDateSelectors {
		raw, ok := dom.Find(ps.selector).First().Attr(ps.attr)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		md.PublishedRaw = raw
		if t, err := dateparse.ParseAny(raw); err == nil {
			md.PublishedAt = t.UTC()
		}
		break
	}

	return md
}

func metaContent(dom *goquery.Document, selector string) string {
	v, _ := dom.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = textutil.CollapseSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
