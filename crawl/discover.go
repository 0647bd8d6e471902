package crawl

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/antibot"
	"golang.org/x/sync/errgroup"
)

// DefaultDiscoverPages bounds a discovery run.
const DefaultDiscoverPages = 100

// Frontier configuration for discovery runs.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for deduplication.
	frontierFalsePositiveRate = 0.01
	// defaultConcurrency keeps sitemap-seeded fetches polite.
	defaultConcurrency = 3
)

// Discoverer collects records from many listing pages at once. When
// the site advertises a sitemap the pages it names are fetched
// concurrently; otherwise discovery walks pagination links outward
// from the start URL, one page at a time.
type Discoverer struct {
	Fetcher     listwalk.PageFetcher
	Extractor   listwalk.Extractor
	Paginator   listwalk.Paginator
	Sitemaps    listwalk.SitemapService
	RateLimiter *DomainLimiter

	// Concurrency is the number of parallel fetches in sitemap-seeded
	// discovery. Zero means defaultConcurrency.
	Concurrency int
	// MaxPages bounds the number of pages fetched.
	// Zero means DefaultDiscoverPages.
	MaxPages int
	// Filter narrows which discovered URLs are fetched.
	Filter *listwalk.URLFilter

	Progress ProgressFunc
}

// Discover collects records from the listing pages reachable from
// startURL. A failing sitemap lookup falls back to link-driven
// discovery rather than ending the run.
func (d *Discoverer) Discover(ctx context.Context, startURL string) (*Result, error) {
	if startURL == "" {
		return nil, listwalk.Errorf(listwalk.EINVALID, "start URL required")
	}
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, listwalk.Errorf(listwalk.EINVALID, "invalid start URL %q", startURL)
	}

	maxPages := d.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultDiscoverPages
	}
	limiter := d.RateLimiter
	if limiter == nil {
		limiter = NewDomainLimiter(1)
	}

	if d.Sitemaps != nil {
		if seeds, err := d.Sitemaps.DiscoverURLs(ctx, startURL, d.Filter); err == nil && len(seeds) > 0 {
			return d.batch(ctx, seeds, maxPages, limiter)
		}
	}

	return d.walkFrontier(ctx, base, startURL, maxPages, limiter)
}

// batch fetches a known set of listing pages concurrently, keeping
// records in the order the sitemap listed their pages.
func (d *Discoverer) batch(ctx context.Context, urls []string, maxPages int, limiter *DomainLimiter) (*Result, error) {
	if len(urls) > maxPages {
		urls = urls[:maxPages]
	}

	type pageResult struct {
		position int
		url      string
		records  []listwalk.Record
		err      error
	}

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	resultCh := make(chan pageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for i, u := range urls {
			g.Go(func() error {
				page, err := d.fetchListing(gctx, u, limiter)
				if err != nil {
					resultCh <- pageResult{position: i, url: u, err: err}
					return nil
				}
				records, err := d.Extractor.Extract(gctx, page)
				resultCh <- pageResult{position: i, url: page.URL, records: records, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	ordered := make([]pageResult, len(urls))
	for pr := range resultCh {
		ordered[pr.position] = pr
		if pr.err != nil {
			d.emit(ProgressEvent{Type: ProgressFailed, URL: pr.url, Error: pr.err})
		} else {
			d.emit(ProgressEvent{Type: ProgressPage, URL: pr.url})
		}
	}

	result := &Result{Reason: ReasonCompleted}
	for _, pr := range ordered {
		if pr.err != nil {
			result.Failed++
			continue
		}
		result.Pages++
		result.LastURL = pr.url
		result.Records = append(result.Records, pr.records...)
	}
	if ctx.Err() != nil {
		result.Reason = ReasonCanceled
	}

	return result, nil
}

// walkFrontier discovers pages by following pagination links outward
// from the start URL. Pages are processed sequentially to keep rate
// limiting and frontier bookkeeping simple.
func (d *Discoverer) walkFrontier(ctx context.Context, base *url.URL, startURL string, maxPages int, limiter *DomainLimiter) (*Result, error) {
	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(startURL)

	result := &Result{Reason: ReasonCompleted}

	for {
		u, ok := frontier.Pop()
		if !ok {
			break
		}
		if result.Pages >= maxPages {
			result.Reason = ReasonMaxPages
			break
		}
		if ctx.Err() != nil {
			result.Reason = ReasonCanceled
			break
		}

		page, err := d.fetchListing(ctx, u, limiter)
		if err != nil {
			if ctx.Err() != nil {
				result.Reason = ReasonCanceled
				break
			}
			result.Failed++
			d.emit(ProgressEvent{Type: ProgressFailed, URL: u, Error: err})
			continue
		}

		result.Pages++
		result.LastURL = page.URL

		if records, err := d.Extractor.Extract(ctx, page); err == nil {
			result.Records = append(result.Records, records...)
		}
		d.emit(ProgressEvent{Type: ProgressPage, URL: page.URL, Pages: result.Pages, Records: len(result.Records)})

		more, err := d.Paginator.ListPageURLs(page, maxPages)
		if err != nil {
			continue
		}
		for _, link := range more {
			if d.inScope(base, link) {
				frontier.Push(link)
			}
		}
	}

	return result, nil
}

// fetchListing rate limits, fetches, and vets one listing page.
func (d *Discoverer) fetchListing(ctx context.Context, rawURL string, limiter *DomainLimiter) (*listwalk.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, listwalk.Errorf(listwalk.EINVALID, "invalid URL %q", rawURL)
	}
	if err := limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}

	page, err := d.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if antibot.LooksLikeChallenge(page.Body) {
		return nil, listwalk.Errorf(listwalk.EBLOCKED, "challenge page at %s", rawURL)
	}
	if !page.OK() {
		return nil, listwalk.Errorf(listwalk.EUNAVAILABLE, "HTTP %d for %s", page.StatusCode, rawURL)
	}

	return page, nil
}

// inScope reports whether a discovered URL belongs to this discovery
// run: same host, under the start URL's path, passing the filter.
func (d *Discoverer) inScope(base *url.URL, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Host != base.Host {
		return false
	}

	prefix := base.Path
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = path.Dir(prefix)
	}
	if !strings.HasPrefix(u.Path, prefix) {
		return false
	}

	if d.Filter != nil && !d.Filter.Match(rawURL) {
		return false
	}
	return true
}

func (d *Discoverer) emit(e ProgressEvent) {
	if d.Progress != nil {
		d.Progress(e)
	}
}
