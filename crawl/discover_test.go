package crawl_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/crawl"
	"github.com/fwojciec/listwalk/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverer_Discover(t *testing.T) {
	t.Parallel()

	t.Run("keeps records in sitemap order", func(t *testing.T) {
		t.Parallel()

		seeds := []string{
			"https://books.example.com/catalogue/page-1.html",
			"https://books.example.com/catalogue/page-2.html",
			"https://books.example.com/catalogue/page-3.html",
		}
		// Later seeds finish first, so ordering must come from seed
		// positions rather than completion order.
		delays := map[string]time.Duration{
			seeds[0]: 30 * time.Millisecond,
			seeds[1]: 15 * time.Millisecond,
			seeds[2]: 0,
		}

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					time.Sleep(delays[url])
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return seeds, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), "https://books.example.com/catalogue/")
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonCompleted, result.Reason)
		assert.Equal(t, 3, result.Pages)
		require.Len(t, result.Records, 3)
		for i, seed := range seeds {
			assert.Equal(t, seed, result.Records[i]["page"])
		}
	})

	t.Run("fetches sitemap pages concurrently", func(t *testing.T) {
		t.Parallel()

		seeds := []string{
			"https://books.example.com/catalogue/page-1.html",
			"https://books.example.com/catalogue/page-2.html",
			"https://books.example.com/catalogue/page-3.html",
		}

		var mu sync.Mutex
		started := 0
		ready := make(chan struct{})

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					mu.Lock()
					started++
					if started == len(seeds) {
						close(ready)
					}
					mu.Unlock()
					select {
					case <-ready:
					case <-time.After(5 * time.Second):
						return nil, errors.New("fetches were serialized")
					}
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return seeds, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
			Concurrency: 3,
		}

		result, err := d.Discover(context.Background(), "https://books.example.com/catalogue/")
		require.NoError(t, err)

		assert.Equal(t, 3, result.Pages)
		assert.Equal(t, 0, result.Failed)
	})

	t.Run("counts failed sitemap pages without stopping", func(t *testing.T) {
		t.Parallel()

		seeds := []string{
			"https://books.example.com/catalogue/page-1.html",
			"https://books.example.com/catalogue/page-2.html",
			"https://books.example.com/catalogue/page-3.html",
		}

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					if url == seeds[1] {
						return &listwalk.Page{URL: url, StatusCode: http.StatusInternalServerError, Body: "server error"}, nil
					}
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return seeds, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), "https://books.example.com/catalogue/")
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonCompleted, result.Reason)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Records, 2)
		assert.Equal(t, seeds[0], result.Records[0]["page"])
		assert.Equal(t, seeds[2], result.Records[1]["page"])
	})

	t.Run("reports challenge pages as blocked failures", func(t *testing.T) {
		t.Parallel()

		seeds := []string{
			"https://books.example.com/catalogue/page-1.html",
			"https://books.example.com/catalogue/page-2.html",
		}

		var mu sync.Mutex
		var failures []error

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					if url == seeds[1] {
						return &listwalk.Page{URL: url, StatusCode: http.StatusOK, Body: "Checking your browser (Cloudflare)"}, nil
					}
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return seeds, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
			Progress: func(event crawl.ProgressEvent) {
				if event.Type == crawl.ProgressFailed {
					mu.Lock()
					failures = append(failures, event.Error)
					mu.Unlock()
				}
			},
		}

		result, err := d.Discover(context.Background(), "https://books.example.com/catalogue/")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		require.Len(t, failures, 1)
		assert.Equal(t, listwalk.EBLOCKED, listwalk.ErrorCode(failures[0]))
	})

	t.Run("falls back to the frontier when the sitemap lookup fails", func(t *testing.T) {
		t.Parallel()

		const (
			start   = "https://books.example.com/catalogue/index.html"
			page2   = "https://books.example.com/catalogue/page-2.html"
			page3   = "https://books.example.com/catalogue/page-3.html"
			offHost = "https://other.example.com/catalogue/page-9.html"
		)

		var fetched []string
		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					fetched = append(fetched, url)
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{
				ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
					if page.URL == start {
						return []string{page2, offHost, page3, page2}, nil
					}
					return nil, nil
				},
			},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return nil, listwalk.Errorf(listwalk.ENOTFOUND, "no sitemap for %s", baseURL)
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), start)
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonCompleted, result.Reason)
		assert.Equal(t, []string{start, page2, page3}, fetched, "off-host and duplicate links should be skipped")
		assert.Equal(t, 3, result.Pages)
		assert.Len(t, result.Records, 3)
	})

	t.Run("treats an empty sitemap as no sitemap", func(t *testing.T) {
		t.Parallel()

		const start = "https://books.example.com/catalogue/index.html"

		var fetched []string
		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					fetched = append(fetched, url)
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return nil, nil
				},
			},
			Paginator: &mock.Paginator{
				ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
					return nil, nil
				},
			},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return []string{}, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), start)
		require.NoError(t, err)

		assert.Equal(t, []string{start}, fetched, "discovery should walk from the start URL")
		assert.Equal(t, 1, result.Pages)
	})

	t.Run("honors the page limit while walking the frontier", func(t *testing.T) {
		t.Parallel()

		fetches := 0
		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					fetches++
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{
				ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
					return []string{
						page.URL + "a",
						page.URL + "b",
					}, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
			MaxPages:    3,
		}

		result, err := d.Discover(context.Background(), "https://books.example.com/catalogue/index.html")
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonMaxPages, result.Reason)
		assert.Equal(t, 3, fetches)
		assert.Equal(t, 3, result.Pages)
	})

	t.Run("applies the URL filter to frontier links", func(t *testing.T) {
		t.Parallel()

		const (
			start = "https://books.example.com/catalogue/index.html"
			page2 = "https://books.example.com/catalogue/page-2.html"
			page9 = "https://books.example.com/catalogue/page-9.html"
		)

		var fetched []string
		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					fetched = append(fetched, url)
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return nil, nil
				},
			},
			Paginator: &mock.Paginator{
				ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
					if page.URL == start {
						return []string{page2, page9}, nil
					}
					return nil, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
			Filter: &listwalk.URLFilter{
				Exclude: []*regexp.Regexp{regexp.MustCompile(`page-9`)},
			},
		}

		result, err := d.Discover(context.Background(), start)
		require.NoError(t, err)

		assert.Equal(t, []string{start, page2}, fetched)
		assert.Equal(t, 2, result.Pages)
	})

	t.Run("counts failed frontier pages without stopping", func(t *testing.T) {
		t.Parallel()

		const (
			start = "https://books.example.com/catalogue/index.html"
			page2 = "https://books.example.com/catalogue/page-2.html"
			page3 = "https://books.example.com/catalogue/page-3.html"
		)

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					if url == page2 {
						return nil, errors.New("i/o timeout")
					}
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{
				ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
					return []listwalk.Record{{"page": page.URL}}, nil
				},
			},
			Paginator: &mock.Paginator{
				ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
					if page.URL == start {
						return []string{page2, page3}, nil
					}
					return nil, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), start)
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonCompleted, result.Reason)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, 1, result.Failed)
		assert.Len(t, result.Records, 2)
	})

	t.Run("requires a valid start URL", func(t *testing.T) {
		t.Parallel()

		d := &crawl.Discoverer{
			Fetcher:     &mock.PageFetcher{},
			Extractor:   &mock.Extractor{},
			Paginator:   &mock.Paginator{},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, listwalk.EINVALID, listwalk.ErrorCode(err))
		assert.Nil(t, result)

		result, err = d.Discover(context.Background(), "://missing-scheme")
		require.Error(t, err)
		assert.Equal(t, listwalk.EINVALID, listwalk.ErrorCode(err))
		assert.Nil(t, result)
	})

	t.Run("reports cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		seeds := []string{
			"https://books.example.com/catalogue/page-1.html",
			"https://books.example.com/catalogue/page-2.html",
		}

		d := &crawl.Discoverer{
			Fetcher: &mock.PageFetcher{
				FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
					return okPage(url), nil
				},
			},
			Extractor: &mock.Extractor{},
			Paginator: &mock.Paginator{},
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
					return seeds, nil
				},
			},
			RateLimiter: crawl.NewDomainLimiter(1000),
		}

		result, err := d.Discover(ctx, "https://books.example.com/catalogue/")
		require.NoError(t, err)

		assert.Equal(t, crawl.ReasonCanceled, result.Reason)
		assert.Equal(t, 0, result.Pages)
		assert.Equal(t, 2, result.Failed)
	})
}
