package mock

import (
	"context"

	"github.com/fwojciec/listwalk"
)

var _ listwalk.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of listwalk.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *listwalk.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
