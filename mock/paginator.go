package mock

import (
	"github.com/fwojciec/listwalk"
)

var _ listwalk.Paginator = (*Paginator)(nil)

// Paginator is a mock implementation of listwalk.Paginator.
type Paginator struct {
	ResolveNextFn  func(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error)
	ListPageURLsFn func(page *listwalk.Page, limit int) ([]string, error)
}

func (p *Paginator) ResolveNext(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error) {
	return p.ResolveNextFn(page, visited)
}

func (p *Paginator) ListPageURLs(page *listwalk.Page, limit int) ([]string, error) {
	return p.ListPageURLsFn(page, limit)
}
