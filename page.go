package listwalk

import "context"

// Page represents a fetched listing page. Fetchers return a Page for any
// HTTP status; classifying a non-2xx response is the caller's concern.
type Page struct {
	// URL the page was fetched from.
	URL string

	// StatusCode is the HTTP status of the response. Browser-based
	// fetchers that cannot observe the status report 200 on a loaded page.
	StatusCode int

	// Body is the decoded response body (UTF-8 HTML).
	Body string
}

// OK reports whether the page carries a 2xx status.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// PageFetcher retrieves listing pages.
// Implementations hide transport details: session pooling, identity
// rotation, proxies, per-fetch timeouts, and body decoding.
type PageFetcher interface {
	// Fetch retrieves the page at url. A non-2xx response is not an
	// error; only transport failures (timeout, refused connection, DNS)
	// return one. The context controls cancellation.
	Fetch(ctx context.Context, url string) (*Page, error)

	// Close releases transport resources.
	// Must be called when the PageFetcher is no longer needed.
	Close() error
}
