package main_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/listwalk"
	main "github.com/fwojciec/listwalk/cmd/listwalk"
	"github.com/fwojciec/listwalk/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverCmd_Run(t *testing.T) {
	t.Parallel()

	const (
		startURL = "https://shop.example.com/catalogue/index.html"
		moreURL  = "https://shop.example.com/catalogue/more.html"
	)

	okFetcher := func() *mock.PageFetcher {
		return &mock.PageFetcher{
			FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
				return &listwalk.Page{URL: url, StatusCode: 200, Body: "<html></html>"}, nil
			},
		}
	}
	oneRecordExtractor := func() *mock.Extractor {
		return &mock.Extractor{
			ExtractFn: func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
				return []listwalk.Record{{"name": page.URL}}, nil
			},
		}
	}
	noPagination := func() *mock.Paginator {
		return &mock.Paginator{
			ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
				return nil, nil
			},
		}
	}

	t.Run("prints pages discovered through the sitemap", func(t *testing.T) {
		t.Parallel()

		sitemaps := &mock.SitemapService{
			DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
				return []string{startURL, moreURL}, nil
			},
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:       context.Background(),
			Stdout:    stdout,
			Stderr:    stderr,
			Static:    okFetcher(),
			Extractor: oneRecordExtractor(),
			Paginator: noPagination(),
			Sitemaps:  sitemaps,
		}
		cmd := &main.DiscoverCmd{URL: startURL, MaxPages: 100, Concurrency: 2, RPS: 1000}

		err := cmd.Run(deps)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), startURL)
		assert.Contains(t, stdout.String(), moreURL)
		assert.Contains(t, stderr.String(), "Discovered 2 pages with 2 records (0 failed)")
	})

	t.Run("falls back to pagination links without a sitemap", func(t *testing.T) {
		t.Parallel()

		sitemaps := &mock.SitemapService{
			DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
				return nil, listwalk.Errorf(listwalk.ENOTFOUND, "no sitemap")
			},
		}
		paginator := &mock.Paginator{
			ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
				if page.URL == startURL {
					return []string{moreURL}, nil
				}
				return nil, nil
			},
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:       context.Background(),
			Stdout:    stdout,
			Stderr:    stderr,
			Static:    okFetcher(),
			Extractor: oneRecordExtractor(),
			Paginator: paginator,
			Sitemaps:  sitemaps,
		}
		cmd := &main.DiscoverCmd{URL: startURL, MaxPages: 100, Concurrency: 2, RPS: 1000}

		err := cmd.Run(deps)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), startURL)
		assert.Contains(t, stdout.String(), moreURL)
		assert.Contains(t, stderr.String(), "Discovered 2 pages")
	})

	t.Run("reports failing pages and keeps going", func(t *testing.T) {
		t.Parallel()

		sitemaps := &mock.SitemapService{
			DiscoverURLsFn: func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
				return []string{startURL, moreURL}, nil
			},
		}
		fetcher := &mock.PageFetcher{
			FetchFn: func(ctx context.Context, url string) (*listwalk.Page, error) {
				if url == startURL {
					return &listwalk.Page{URL: url, StatusCode: 500, Body: "server error"}, nil
				}
				return &listwalk.Page{URL: url, StatusCode: 200, Body: "<html></html>"}, nil
			},
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:       context.Background(),
			Stdout:    stdout,
			Stderr:    stderr,
			Static:    fetcher,
			Extractor: oneRecordExtractor(),
			Paginator: noPagination(),
			Sitemaps:  sitemaps,
		}
		cmd := &main.DiscoverCmd{URL: startURL, MaxPages: 100, Concurrency: 2, RPS: 1000}

		err := cmd.Run(deps)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), moreURL)
		assert.Contains(t, stderr.String(), "skip")
		assert.Contains(t, stderr.String(), "HTTP 500")
		assert.Contains(t, stderr.String(), "Discovered 1 pages with 1 records (1 failed)")
	})

	t.Run("rejects an invalid filter pattern", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: stderr,
		}
		cmd := &main.DiscoverCmd{URL: startURL, MaxPages: 100, RPS: 1000, Filter: []string{"["}}

		err := cmd.Run(deps)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "invalid filter pattern")
	})
}
