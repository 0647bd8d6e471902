// Package goquery implements pagination resolution and record extraction
// over parsed HTML using CSS selectors.
package goquery

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/listwalk"
)

// Next-button selectors, tried in order. Structural matches (li.next)
// come before semantic hints (rel, aria-label).
var nextButtonSelectors = []string{
	"li.next a",
	".next a",
	"a.next",
	".pagination .next",
	".pager-next a",
	".next-page",
	"[rel='next']",
	"a[aria-label*='next']",
	"a[title*='next']",
	".pagination-next a",
}

// Containers that hold numbered pagination links.
var paginationContainers = []string{
	".pagination", ".pager", ".page-numbers", ".paginate", ".page-nav", ".pagination-wrapper",
}

// Link texts that read as "take me to the next page".
var nextWords = map[string]bool{"next": true, ">": true, "→": true}

// Load-more affordances and the attributes that carry their target, in
// priority order.
var loadMoreSelectors = []string{
	".load-more", ".show-more", ".view-more",
	"[data-next-url]", "[data-load-more]", ".infinite-scroll",
}

var loadMoreAttrs = []string{"data-next-url", "data-load-more", "data-url", "href"}

// Path shapes that embed a page number, with their rewrite format.
var pathPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`/page[-_/](\d+)`), "/page-%d"},
	{regexp.MustCompile(`page[-_](\d+)\.html`), "page-%d.html"},
	{regexp.MustCompile(`p(\d+)\.html`), "p%d.html"},
}

// Query parameters that act as page indicators, in the order they are
// tried for increments.
var pageQueryParams = []string{"page", "p", "pagenum", "offset", "start"}

// pageNumberPattern extracts the current page number from a URL path.
var pageNumberPattern = regexp.MustCompile(`/page[-_/]?(\d+)`)

// Ensure Resolver implements listwalk.Paginator.
var _ listwalk.Paginator = (*Resolver)(nil)

// Resolver decides the next page of a listing using four strategies in
// fixed priority order: an explicit next control, numbered pagination
// links, a load-more affordance, and finally URL construction. A
// candidate already handed out (present in the visited set) falls
// through to the next strategy, which is what breaks pagination cycles.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveNext implements listwalk.Paginator.
func (r *Resolver) ResolveNext(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error) {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, listwalk.Errorf(listwalk.EINVALID, "invalid page URL %q", page.URL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	strategies := []struct {
		strategy listwalk.Strategy
		find     func() string
	}{
		{listwalk.StrategyNextButton, func() string { return findNextButton(doc) }},
		{listwalk.StrategyNumberedLink, func() string { return findNumberedNext(doc, page.URL) }},
		{listwalk.StrategyLoadMore, func() string { return findLoadMore(doc) }},
		{listwalk.StrategyConstructed, func() string { return constructNextURL(page.URL) }},
	}

	for _, s := range strategies {
		href := s.find()
		if href == "" {
			continue
		}
		full := resolvePageURL(base, href)
		if full == "" {
			continue
		}
		if visited.Add(full) {
			return &listwalk.Candidate{URL: full, Strategy: s.strategy}, nil
		}
	}

	return nil, nil
}

// ListPageURLs implements listwalk.Paginator.
func (r *Resolver) ListPageURLs(page *listwalk.Page, limit int) ([]string, error) {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, listwalk.Errorf(listwalk.EINVALID, "invalid page URL %q", page.URL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var urls []string
	seen := make(map[string]bool)
	for _, selector := range []string{".pagination a", ".pager a", ".page-numbers a"} {
		doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if limit > 0 && len(urls) >= limit {
				return false
			}
			href := link.AttrOr("href", "")
			if href == "" {
				return true
			}
			full := resolvePageURL(base, href)
			if full == "" || seen[full] {
				return true
			}
			seen[full] = true
			urls = append(urls, full)
			return true
		})
		if limit > 0 && len(urls) >= limit {
			break
		}
	}

	return urls, nil
}

// findNextButton returns the link target of the first explicit next
// control, or "".
func findNextButton(doc *goquery.Document) string {
	for _, selector := range nextButtonSelectors {
		if href := doc.Find(selector).First().AttrOr("href", ""); href != "" {
			return href
		}
	}
	return ""
}

// findNumberedNext scans numbered pagination links. A link labeled
// exactly current+1 is preferred over an explicit "next" label; links
// with non-numeric labels are skipped, not errors.
func findNumberedNext(doc *goquery.Document, currentURL string) string {
	current, haveCurrent := extractPageNumber(currentURL)

	for _, selector := range paginationContainers {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		links := container.Find("a[href]")

		if haveCurrent {
			if href := firstHref(links, func(text string) bool {
				n, err := strconv.Atoi(text)
				return err == nil && n == current+1
			}); href != "" {
				return href
			}
		}

		if href := firstHref(links, func(text string) bool {
			return nextWords[strings.ToLower(text)]
		}); href != "" {
			return href
		}
	}
	return ""
}

// firstHref returns the href of the first link whose trimmed text
// satisfies match and whose href is non-empty.
func firstHref(links *goquery.Selection, match func(text string) bool) string {
	var href string
	links.EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if !match(strings.TrimSpace(link.Text())) {
			return true
		}
		h := link.AttrOr("href", "")
		if h == "" {
			return true
		}
		href = h
		return false
	})
	return href
}

// findLoadMore returns the target of a load-more / infinite-scroll
// affordance, or "".
func findLoadMore(doc *goquery.Document) string {
	for _, selector := range loadMoreSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		for _, attr := range loadMoreAttrs {
			if v := el.AttrOr(attr, ""); v != "" {
				return v
			}
		}
	}
	return ""
}

// constructNextURL increments a page indicator embedded in the URL:
// first known path shapes, then page-like query parameters. Non-integer
// values are skipped. Returns "" when the URL has no recognizable
// indicator.
func constructNextURL(currentURL string) string {
	u, err := url.Parse(currentURL)
	if err != nil {
		return ""
	}

	for _, p := range pathPatterns {
		m := p.re.FindStringSubmatch(u.Path)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		u.Path = p.re.ReplaceAllString(u.Path, fmt.Sprintf(p.format, n+1))
		return u.String()
	}

	q := u.Query()
	for _, param := range pageQueryParams {
		vals, ok := q[param]
		if !ok || len(vals) == 0 {
			continue
		}
		n, err := strconv.Atoi(vals[0])
		if err != nil {
			continue
		}
		q.Set(param, strconv.Itoa(n+1))
		u.RawQuery = q.Encode()
		return u.String()
	}

	return ""
}

// extractPageNumber pulls the current page number from a URL, by path
// segment first, then by page-like query parameters.
func extractPageNumber(rawURL string) (int, bool) {
	if m := pageNumberPattern.FindStringSubmatch(rawURL); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	q := u.Query()
	for _, param := range []string{"page", "p", "pagenum"} {
		vals, ok := q[param]
		if !ok || len(vals) == 0 {
			continue
		}
		if n, err := strconv.Atoi(vals[0]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// resolvePageURL resolves href against base and drops the fragment, so
// that a self-referential "#" target maps back to the page it came from
// and fails the visited check.
func resolvePageURL(base *url.URL, href string) string {
	resolved := resolveURL(base, href)
	if resolved == "" {
		return ""
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// resolveURL resolves href against base, keeping only http(s) targets.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
