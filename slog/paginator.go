package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/listwalk"
)

// Ensure LoggingPaginator implements listwalk.Paginator.
var _ listwalk.Paginator = (*LoggingPaginator)(nil)

// LoggingPaginator wraps a Paginator with debug logging for strategy selection.
type LoggingPaginator struct {
	next   listwalk.Paginator
	logger *slog.Logger
}

// NewLoggingPaginator creates a new LoggingPaginator.
func NewLoggingPaginator(next listwalk.Paginator, logger *slog.Logger) *LoggingPaginator {
	return &LoggingPaginator{next: next, logger: logger}
}

// ResolveNext delegates to the wrapped paginator and logs which strategy
// produced the next page, if any.
func (p *LoggingPaginator) ResolveNext(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error) {
	begin := time.Now()
	candidate, err := p.next.ResolveNext(page, visited)
	strategy := "(none)"
	next := ""
	if candidate != nil {
		strategy = candidate.Strategy.String()
		next = candidate.URL
	}
	p.logger.Info("pagination",
		"url", page.URL,
		"strategy", strategy,
		"next", next,
		"duration", time.Since(begin),
		"err", err,
	)
	return candidate, err
}

// ListPageURLs delegates to the wrapped paginator.
func (p *LoggingPaginator) ListPageURLs(page *listwalk.Page, limit int) ([]string, error) {
	return p.next.ListPageURLs(page, limit)
}
