// Package mock provides function-field mocks of the listwalk
// interfaces for use in tests.
package mock

import (
	"context"

	"github.com/fwojciec/listwalk"
)

var _ listwalk.PageFetcher = (*PageFetcher)(nil)

// PageFetcher is a mock implementation of listwalk.PageFetcher.
type PageFetcher struct {
	FetchFn func(ctx context.Context, url string) (*listwalk.Page, error)
	CloseFn func() error
}

func (f *PageFetcher) Fetch(ctx context.Context, url string) (*listwalk.Page, error) {
	return f.FetchFn(ctx, url)
}

func (f *PageFetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
