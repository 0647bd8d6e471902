// Package http implements static-site retrieval: a pool of sessions
// with per-session cookies and proxies, a PageFetcher that presents
// rotating browser identities, and sitemap discovery.
package http

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/fwojciec/listwalk"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
// Kept consistent with rod.DefaultFetchTimeout (10s).
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodySize caps decoded response bodies at 10MB. Listing
// pages are far smaller; anything past the cap is truncated.
const DefaultMaxBodySize = 10 << 20

// Ensure Fetcher implements listwalk.PageFetcher at compile time.
var _ listwalk.PageFetcher = (*Fetcher)(nil)

// Fetcher retrieves pages over plain HTTP through a session pool.
// Unlike rod.Fetcher it does not execute JavaScript and is suitable
// for static sites only. Responses come back whatever their status
// code; callers decide what a 403 or 429 means.
type Fetcher struct {
	pool        *SessionPool
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize sets how many decoded body bytes a fetch keeps.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// NewFetcher creates a Fetcher that draws its sessions from pool.
func NewFetcher(pool *SessionPool, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		pool:        pool,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements listwalk.PageFetcher. The returned page carries the
// final URL after redirects and a body decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*listwalk.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	sess := f.pool.Get()
	for k, v := range sess.Identity.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := sess.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp, f.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	return &listwalk.Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// Close releases the sessions behind the fetcher.
func (f *Fetcher) Close() error {
	return f.pool.Close()
}

// decodeBody undoes the content encoding the identity advertised and
// converts the result to UTF-8, truncated at maxBody decoded bytes.
// Unknown encodings are read as-is.
func decodeBody(resp *http.Response, maxBody int64) (string, error) {
	var r io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		r = gz
	case "deflate":
		fr := flate.NewReader(r)
		defer fr.Close()
		r = fr
	case "br":
		r = brotli.NewReader(r)
	}

	r, err := charset.NewReader(r, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return "", err
	}

	return string(body), nil
}
