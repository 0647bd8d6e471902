// Package rod implements browser-rendered page retrieval using Chrome
// automation, for listings that only materialize through JavaScript.
package rod

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/listwalk"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds a single navigation, matching the page
// load budget static fetches get plus rendering headroom.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements listwalk.PageFetcher at compile time.
var _ listwalk.PageFetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered pages through a managed Chrome browser.
// Every fetch opens a fresh tab, presents a rotated identity, and
// observes the document response to recover the status code.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	rotator listwalk.IdentityRotator
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the navigation timeout for a single fetch.
// Defaults to DefaultFetchTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a Fetcher that draws browsers from manager and
// identities from rotator. Close must be called when the Fetcher is no
// longer needed.
func NewFetcher(manager *BrowserManager, rotator listwalk.IdentityRotator, opts ...Option) *Fetcher {
	f := &Fetcher{
		manager: manager,
		rotator: rotator,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements listwalk.PageFetcher. The returned page carries the
// rendered HTML and the status of the document response.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*listwalk.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.timeout)

	identity := f.rotator.BuildIdentity()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      identity.UserAgent,
		AcceptLanguage: identity.AcceptLanguage,
	}); err != nil {
		return nil, err
	}
	if pairs := extraHeaderPairs(identity); len(pairs) > 0 {
		if _, err := page.SetExtraHeaders(pairs); err != nil {
			return nil, err
		}
	}

	var status int
	var finalURL string
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = int(e.Response.Status)
			finalURL = e.Response.URL
			return true
		}
		return false
	})

	if err := page.Navigate(url); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	wait()

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}

	f.manager.IncrementPageCount()

	// Pages served without an observable document response (service
	// workers, in-memory navigations) rendered fine, so count them as OK.
	if status == 0 {
		status = http.StatusOK
	}
	if finalURL == "" {
		finalURL = url
	}

	return &listwalk.Page{
		URL:        finalURL,
		StatusCode: status,
		Body:       html,
	}, nil
}

// Close releases the browser resources behind the fetcher.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

// extraHeaderPairs flattens the identity's extra headers for the
// browser. Accept-Encoding stays with the browser, which decodes
// whatever it negotiates.
func extraHeaderPairs(identity listwalk.Identity) []string {
	var pairs []string
	for k, v := range identity.Extra {
		if http.CanonicalHeaderKey(k) == "Accept-Encoding" {
			continue
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
