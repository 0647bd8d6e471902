package mock

import (
	"context"

	"github.com/fwojciec/listwalk"
)

var _ listwalk.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of listwalk.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error)
}

func (e *Extractor) Extract(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
	return e.ExtractFn(ctx, page)
}
