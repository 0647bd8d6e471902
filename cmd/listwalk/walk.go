package main

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/crawl"
	"github.com/fwojciec/listwalk/fs"
)

// Run executes the walk command.
func (c *WalkCmd) Run(deps *Dependencies) error {
	writer := fs.NewWriter(c.Out, outputBase(c.URL), fs.Format(c.Format), deps.Fields)

	var result *crawl.Result
	var err error
	if c.Mode == listwalk.ModeBoth {
		result, err = c.walkBoth(deps)
	} else {
		result, err = c.walkSingle(deps)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}

	summary := fmt.Sprintf("Collected %s from %d pages (%s)",
		crawl.FormatCount(len(result.Records)), result.Pages, result.Reason)
	if result.Failed > 0 {
		summary += fmt.Sprintf(", %d failed", result.Failed)
	}
	fmt.Fprintln(deps.Stdout, summary)

	// An empty or cut-short walk still writes its file. Partial output
	// is output.
	paths, err := writer.Write(result.Records)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}
	for _, path := range paths {
		fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
	}

	return nil
}

// walkSingle walks the listing with one fetcher, persisting page by page
// when a database is wired.
func (c *WalkCmd) walkSingle(deps *Dependencies) (*crawl.Result, error) {
	fetcher := deps.Static
	if c.Mode == listwalk.ModeBrowser {
		fetcher = deps.Browser
	}

	var mu sync.Mutex
	walker := &crawl.Walker{
		Fetcher:    fetcher,
		Extractor:  deps.Extractor,
		Paginator:  deps.Paginator,
		Throttle:   deps.newThrottle(),
		MaxRecords: c.MaxRecords,
		MaxPages:   c.MaxPages,
		Progress:   walkProgress(deps, "", &mu),
	}

	var runID string
	if deps.Runs != nil {
		run := &listwalk.Run{StartURL: c.URL, Mode: c.Mode}
		if err := deps.Runs.CreateRun(deps.Ctx, run); err != nil {
			return nil, err
		}
		runID = run.ID
		walker.Runs = deps.Runs
		walker.RunID = runID
	}

	result, err := walker.Walk(deps.Ctx, c.URL)
	if err != nil {
		return nil, err
	}

	if deps.Runs != nil {
		if err := finishRun(deps, runID, result); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: run not updated: %s\n", listwalk.ErrorMessage(err))
		}
	}

	return result, nil
}

// walkBoth runs a static and a browser walk of the same listing in
// parallel, splitting the record budget between them and deduplicating
// the merged result.
func (c *WalkCmd) walkBoth(deps *Dependencies) (*crawl.Result, error) {
	c.probeBrowserNeed(deps)

	staticBudget := (c.MaxRecords + 1) / 2
	browserBudget := c.MaxRecords / 2

	var mu sync.Mutex
	staticWalker := &crawl.Walker{
		Fetcher:    deps.Static,
		Extractor:  deps.Extractor,
		Paginator:  deps.Paginator,
		Throttle:   deps.newThrottle(),
		MaxRecords: staticBudget,
		MaxPages:   c.MaxPages,
		Progress:   walkProgress(deps, "static", &mu),
	}
	browserWalker := &crawl.Walker{
		Fetcher:    deps.Browser,
		Extractor:  deps.Extractor,
		Paginator:  deps.Paginator,
		Throttle:   deps.newThrottle(),
		MaxRecords: browserBudget,
		MaxPages:   c.MaxPages,
		Progress:   walkProgress(deps, "browser", &mu),
	}

	var staticResult, browserResult *crawl.Result
	g, gctx := errgroup.WithContext(deps.Ctx)
	g.Go(func() error {
		var err error
		staticResult, err = staticWalker.Walk(gctx, c.URL)
		return err
	})
	g.Go(func() error {
		var err error
		browserResult, err = browserWalker.Walk(gctx, c.URL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &crawl.Result{
		Pages:   staticResult.Pages + browserResult.Pages,
		Failed:  staticResult.Failed + browserResult.Failed,
		Reason:  mergedReason(staticResult.Reason, browserResult.Reason),
		LastURL: staticResult.LastURL,
	}
	seen := make(map[string]bool)
	for _, record := range append(staticResult.Records, browserResult.Records...) {
		fp := crawl.Fingerprint(record)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		merged.Records = append(merged.Records, record)
	}
	if c.MaxRecords > 0 && len(merged.Records) > c.MaxRecords {
		merged.Records = merged.Records[:c.MaxRecords]
	}

	if deps.Runs != nil {
		run := &listwalk.Run{StartURL: c.URL, Mode: listwalk.ModeBoth}
		if err := deps.Runs.CreateRun(deps.Ctx, run); err != nil {
			return nil, err
		}
		if err := deps.Runs.AddRecords(deps.Ctx, run.ID, c.URL, merged.Records); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: records not persisted: %s\n", listwalk.ErrorMessage(err))
		}
		if err := finishRun(deps, run.ID, merged); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: run not updated: %s\n", listwalk.ErrorMessage(err))
		}
	}

	return merged, nil
}

// probeBrowserNeed compares extraction from a plain fetch and a rendered
// fetch of the start page. When the static page extracts just as well,
// running the browser adds nothing but load.
func (c *WalkCmd) probeBrowserNeed(deps *Dependencies) {
	static, err := deps.Static.Fetch(deps.Ctx, c.URL)
	if err != nil {
		return
	}
	rendered, err := deps.Browser.Fetch(deps.Ctx, c.URL)
	if err != nil {
		return
	}
	if !crawl.NeedsBrowser(deps.Ctx, static, rendered, deps.Extractor) {
		fmt.Fprintln(deps.Stdout, "Note: static extraction matches rendered output, --mode static would do")
	}
}

// finishRun stamps the run with its outcome.
func finishRun(deps *Dependencies, runID string, result *crawl.Result) error {
	finishedAt := time.Now()
	pages := result.Pages
	records := len(result.Records)
	reason := string(result.Reason)
	_, err := deps.Runs.UpdateRun(deps.Ctx, runID, listwalk.RunUpdate{
		FinishedAt: &finishedAt,
		Pages:      &pages,
		Records:    &records,
		Reason:     &reason,
	})
	return err
}

// mergedReason picks the outcome for a two-mode walk. An abnormal
// termination wins over a completed one, the static walk's when both
// are abnormal.
func mergedReason(static, browser crawl.Reason) crawl.Reason {
	if static == crawl.ReasonCompleted {
		return browser
	}
	return static
}

// walkProgress prints walk progress. The mutex keeps both walkers'
// lines whole when two walks share a writer. Labels tag the lines of
// concurrent walks.
func walkProgress(deps *Dependencies, label string, mu *sync.Mutex) crawl.ProgressFunc {
	prefix := ""
	if label != "" {
		prefix = "[" + label + "] "
	}
	return func(event crawl.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "%sWalking %s\n", prefix, event.URL)
		case crawl.ProgressPage:
			fmt.Fprintf(deps.Stdout, "%s  %s (%d collected)\n", prefix, crawl.TruncateURL(event.URL, 60), event.Records)
		case crawl.ProgressRateLimited:
			fmt.Fprintf(deps.Stderr, "%s  rate limited at %s, backing off\n", prefix, crawl.TruncateURL(event.URL, 60))
		case crawl.ProgressRetry:
			fmt.Fprintf(deps.Stderr, "%s  retry %s: %v\n", prefix, crawl.TruncateURL(event.URL, 60), event.Error)
		}
	}
}

// outputBase derives a filesystem-friendly file stem from the site host.
func outputBase(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "records"
	}
	return strings.NewReplacer(".", "_", ":", "_").Replace(u.Host)
}
