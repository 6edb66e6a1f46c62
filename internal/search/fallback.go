package search

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultFallbackEndpoint is the Google results page, searched when the
// primary endpoint fails or finds nothing.
const DefaultFallbackEndpoint = "https://www.google.com/search"

// Alternative results need titles longer than this.
const minAlternativeTitleRunes = 5

// DefaultKnownSources are the university pages used when no search
// endpoint yields a result.
func DefaultKnownSources() []Result {
	return []Result{
		{
			Title:   "Gebze Teknik Üniversitesi - Ana Sayfa",
			URL:     "https://www.gtu.edu.tr",
			Snippet: "Gebze Teknik Üniversitesi resmi web sitesi",
		},
		{
			Title:   "GTU Haberler",
			URL:     "https://www.gtu.edu.tr/tr/haberler",
			Snippet: "Gebze Teknik Üniversitesi haberler ve duyurular",
		},
		{
			Title:   "GTU Duyurular",
			URL:     "https://www.gtu.edu.tr/tr/duyurular",
			Snippet: "Gebze Teknik Üniversitesi duyurular",
		},
	}
}

// ParseAlternativeResults extracts hits from a Google results page.
// Links of the form /url?q=<target> are unwrapped. Blocks that repeat
// an already collected URL are skipped.
func ParseAlternativeResults(html []byte, max int) ([]Result, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []Result
	seen := make(map[string]bool)

	dom.Find("div.g, div[data-ved], .tF2Cxc").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(results) >= max {
			return false
		}

		title := strings.TrimSpace(s.Find("h3, .LC20lb, .DKV0Md").First().Text())
		href, _ := s.Find("a").First().Attr("href")
		target, ok := resolveResultURL(unwrapGoogleURL(href))
		if !ok || seen[target] || utf8.RuneCountInString(title) <= minAlternativeTitleRunes {
			return true
		}
		seen[target] = true

		results = append(results, Result{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".VwiC3b, .s, .IsZvec, .st").First().Text()),
		})
		return true
	})

	return results, nil
}

// unwrapGoogleURL returns the q parameter of a /url?q= redirect link,
// or href unchanged.
func unwrapGoogleURL(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("q"); target != "" {
		return target
	}
	return href
}
