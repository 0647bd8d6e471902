// Package crawl orchestrates walking paginated listings: fetching
// pages, extracting records, resolving the next page, and pacing
// requests so a walk survives rate limiting and blocking.
package crawl

import (
	"context"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/antibot"
)

// DefaultMaxRetries is the consecutive failure budget for one page.
const DefaultMaxRetries = 3

// DefaultMaxPages bounds walks over listings that never run out of
// next pages.
const DefaultMaxPages = 50

// Reason explains why a walk ended.
type Reason string

const (
	// ReasonCompleted means the listing ran out of next pages.
	ReasonCompleted Reason = "completed"
	// ReasonMaxRecords means the record limit was reached.
	ReasonMaxRecords Reason = "max_records"
	// ReasonMaxPages means the page limit was reached.
	ReasonMaxPages Reason = "max_pages"
	// ReasonBlocked means the site answered with a bot challenge.
	ReasonBlocked Reason = "blocked"
	// ReasonErrors means the failure budget ran out on one page.
	ReasonErrors Reason = "errors"
	// ReasonCanceled means the context ended the walk.
	ReasonCanceled Reason = "canceled"
)

// Result holds the outcome of a walk or discovery. Whatever the
// terminal reason, Records carries everything collected up to it.
type Result struct {
	Records []listwalk.Record
	Pages   int
	Failed  int
	Reason  Reason
	LastURL string
}

// ProgressEvent reports progress while a walk proceeds.
type ProgressEvent struct {
	Type    ProgressType
	URL     string
	Pages   int
	Records int
	Error   error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressPage
	ProgressRetry
	ProgressRateLimited
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting walk progress.
type ProgressFunc func(event ProgressEvent)

// Walker follows one paginated listing from its start URL, collecting
// records page by page until a terminal condition is hit.
//
// Transport errors and unexpected statuses consume the per-page retry
// budget; rate-limited responses escalate the throttle and retry the
// same URL without consuming it; a challenge page ends the walk
// immediately. Partial results are results.
type Walker struct {
	Fetcher   listwalk.PageFetcher
	Extractor listwalk.Extractor
	Paginator listwalk.Paginator
	Throttle  *antibot.Throttle

	// MaxRecords stops the walk once this many records are collected.
	// Zero means no limit.
	MaxRecords int
	// MaxPages bounds the number of pages processed.
	// Zero means DefaultMaxPages.
	MaxPages int
	// MaxRetries is the consecutive failure budget per page.
	// Zero means DefaultMaxRetries.
	MaxRetries int

	// Runs, when set together with RunID, receives records as pages
	// are processed.
	Runs  listwalk.RunService
	RunID string

	Progress ProgressFunc
}

// Walk follows the listing from startURL until a terminal condition
// and reports what it collected and why it stopped.
func (w *Walker) Walk(ctx context.Context, startURL string) (*Result, error) {
	if startURL == "" {
		return nil, listwalk.Errorf(listwalk.EINVALID, "start URL required")
	}

	maxRetries := w.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	maxPages := w.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	throttle := w.Throttle
	if throttle == nil {
		throttle = antibot.NewThrottle()
	}

	visited := listwalk.NewVisitedSet(startURL)
	result := &Result{LastURL: startURL}
	current := startURL
	failures := 0

	w.emit(ProgressEvent{Type: ProgressStarted, URL: startURL})

	for {
		if ctx.Err() != nil {
			result.Reason = ReasonCanceled
			break
		}

		page, err := w.Fetcher.Fetch(ctx, current)
		if err != nil {
			failures++
			result.Failed++
			w.emit(ProgressEvent{Type: ProgressRetry, URL: current, Pages: result.Pages, Records: len(result.Records), Error: err})
			if failures >= maxRetries {
				result.Reason = ReasonErrors
				break
			}
			if _, err := throttle.Wait(ctx, false); err != nil {
				result.Reason = ReasonCanceled
				break
			}
			continue
		}

		if antibot.LooksLikeChallenge(page.Body) {
			result.Reason = ReasonBlocked
			result.LastURL = page.URL
			break
		}

		if antibot.LooksRateLimited(page.Body, page.StatusCode) {
			// Rate limiting is pressure, not failure: escalate the
			// backoff and try the same URL again.
			w.emit(ProgressEvent{Type: ProgressRateLimited, URL: current, Pages: result.Pages, Records: len(result.Records)})
			if _, err := throttle.Wait(ctx, false); err != nil {
				result.Reason = ReasonCanceled
				break
			}
			continue
		}

		if !page.OK() {
			failures++
			result.Failed++
			w.emit(ProgressEvent{
				Type:    ProgressRetry,
				URL:     current,
				Pages:   result.Pages,
				Records: len(result.Records),
				Error:   listwalk.Errorf(listwalk.EUNAVAILABLE, "HTTP %d for %s", page.StatusCode, current),
			})
			if failures >= maxRetries {
				result.Reason = ReasonErrors
				break
			}
			if _, err := throttle.Wait(ctx, false); err != nil {
				result.Reason = ReasonCanceled
				break
			}
			continue
		}

		failures = 0
		result.Pages++
		result.LastURL = page.URL

		records, err := w.Extractor.Extract(ctx, page)
		if err != nil {
			// A page that extracts badly contributes nothing but does
			// not end the walk.
			w.emit(ProgressEvent{Type: ProgressPage, URL: page.URL, Pages: result.Pages, Records: len(result.Records), Error: err})
			records = nil
		}

		if len(records) > 0 {
			if w.MaxRecords > 0 {
				if remaining := w.MaxRecords - len(result.Records); len(records) > remaining {
					records = records[:remaining]
				}
			}
			result.Records = append(result.Records, records...)
			if w.Runs != nil && w.RunID != "" {
				// Best effort: a failing sink must not end the walk.
				_ = w.Runs.AddRecords(ctx, w.RunID, page.URL, records)
			}
		}

		if err == nil {
			w.emit(ProgressEvent{Type: ProgressPage, URL: page.URL, Pages: result.Pages, Records: len(result.Records)})
		}

		if w.MaxRecords > 0 && len(result.Records) >= w.MaxRecords {
			result.Reason = ReasonMaxRecords
			break
		}
		if result.Pages >= maxPages {
			result.Reason = ReasonMaxPages
			break
		}

		candidate, err := w.Paginator.ResolveNext(page, visited)
		if err != nil || candidate == nil {
			result.Reason = ReasonCompleted
			break
		}

		if _, err := throttle.Wait(ctx, true); err != nil {
			result.Reason = ReasonCanceled
			break
		}
		current = candidate.URL
	}

	w.emit(ProgressEvent{Type: ProgressFinished, URL: result.LastURL, Pages: result.Pages, Records: len(result.Records)})

	return result, nil
}

func (w *Walker) emit(e ProgressEvent) {
	if w.Progress != nil {
		w.Progress(e)
	}
}
