// Package parser provides the lightweight link and domain scanner used
// during discovery. It walks the HTML tree once and collects every URL
// carried by a link-bearing attribute.
package parser

import (
	"bytes"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// urlAttributes maps element names to the attribute holding a URL.
var urlAttributes = map[string]string{
	"a":      "href",
	"link":   "href",
	"script": "src",
	"img":    "src",
	"iframe": "src",
	"source": "src",
	"video":  "src",
	"audio":  "src",
	"embed":  "src",
	"object": "data",
	"form":   "action",
}

// metaURLProperties are meta tags whose content is a URL.
var metaURLProperties = map[string]bool{
	"og:url":        true,
	"og:image":      true,
	"twitter:image": true,
}

// LinkScanner extracts absolute URLs from an HTML page.
type LinkScanner struct {
	baseURL        *url.URL
	allowedSchemes []string
}

// ScanResult contains the URLs found on a page, deduplicated, in
// document order, without fragments.
type ScanResult struct {
	URLs []string
}

// NewLinkScanner creates a scanner resolving against baseURL with the
// default http/https schemes.
func NewLinkScanner(baseURL string) (*LinkScanner, error) {
	return NewLinkScannerWithSchemes(baseURL, []string{"https://", "http://"})
}

// NewLinkScannerWithSchemes creates a scanner with custom allowed schemes.
func NewLinkScannerWithSchemes(baseURL string, allowedSchemes []string) (*LinkScanner, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if len(allowedSchemes) == 0 {
		allowedSchemes = []string{"https://", "http://"}
	}
	return &LinkScanner{baseURL: parsedURL, allowedSchemes: allowedSchemes}, nil
}

// Scan parses htmlContent and returns every URL-bearing attribute value
// resolved against the base URL.
func (p *LinkScanner) Scan(htmlContent []byte) (*ScanResult, error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &ScanResult{}
	seen := make(map[string]bool)
	p.traverse(doc, func(raw string) {
		abs, ok := p.normalize(raw)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true
		result.URLs = append(result.URLs, abs)
	})
	return result, nil
}

// traverse walks the tree iteratively in document order.
func (p *LinkScanner) traverse(root *html.Node, emit func(string)) {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			if n.Data == "meta" {
				if v := metaURL(n); v != "" {
					emit(v)
				}
			} else if attr, ok := urlAttributes[n.Data]; ok {
				if v := attrValue(n, attr); v != "" {
					emit(v)
				}
			}
		}

		// Push children in reverse so the first child is visited first.
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

func metaURL(n *html.Node) string {
	key := strings.ToLower(attrValue(n, "property"))
	if key == "" {
		key = strings.ToLower(attrValue(n, "name"))
	}
	if !metaURLProperties[key] {
		return ""
	}
	return attrValue(n, "content")
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// normalize resolves raw against the base URL, drops the fragment and
// rejects fragment-only references and disallowed schemes.
func (p *LinkScanner) normalize(raw string) (string, bool) {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	if !p.isAllowedScheme(raw) {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	abs := resolved.String()
	if !p.isAllowedScheme(abs) || resolved.Hostname() == "" {
		return "", false
	}
	return abs, true
}

// isAllowedScheme checks if the URL has an allowed scheme. Relative
// references are allowed; they inherit the base URL's scheme.
func (p *LinkScanner) isAllowedScheme(href string) bool {
	if strings.Contains(href, "://") {
		lower := strings.ToLower(href)
		for _, scheme := range p.allowedSchemes {
			if strings.HasPrefix(lower, scheme) {
				return true
			}
		}
		return false
	}

	// Scheme-only forms such as mailto:, tel:, javascript:
	if i := strings.Index(href, ":"); i > 0 && !strings.ContainsAny(href[:i], "/?#") {
		return false
	}

	return true
}

// SplitHost partitions a hostname into its registrable domain (the last
// two DNS labels) and the remaining leading labels. IP addresses are
// their own domain. Single-label hosts are rejected.
func SplitHost(host string) (domain, subdomain string, ok bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", "", false
	}
	if net.ParseIP(host) != nil {
		return host, "", true
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", "", false
	}
	domain = strings.Join(labels[len(labels)-2:], ".")
	subdomain = strings.Join(labels[:len(labels)-2], ".")
	return domain, subdomain, true
}

// InDomain reports whether host is target or a subdomain of it.
func InDomain(host, target string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	target = strings.TrimSuffix(strings.ToLower(target), ".")
	if host == "" || target == "" {
		return false
	}
	return host == target || strings.HasSuffix(host, "."+target)
}

// HostOf returns the lowercase hostname of rawURL, or "".
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
