package main

import (
	"fmt"
	"regexp"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/crawl"
)

// Run executes the discover command. Discovered page URLs go to stdout,
// one per line, so the output pipes cleanly. Everything else goes to
// stderr.
func (c *DiscoverCmd) Run(deps *Dependencies) error {
	var filter *listwalk.URLFilter
	if len(c.Filter) > 0 {
		filter = &listwalk.URLFilter{}
		for _, pattern := range c.Filter {
			re, err := regexp.Compile(pattern)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: invalid filter pattern %q: %v\n", pattern, err)
				return err
			}
			filter.Include = append(filter.Include, re)
		}
	}

	rps := c.RPS
	if rps <= 0 {
		rps = 1
	}

	discoverer := &crawl.Discoverer{
		Fetcher:     deps.Static,
		Extractor:   deps.Extractor,
		Paginator:   deps.Paginator,
		Sitemaps:    deps.Sitemaps,
		RateLimiter: crawl.NewDomainLimiter(rps),
		Concurrency: c.Concurrency,
		MaxPages:    c.MaxPages,
		Filter:      filter,
		Progress: func(event crawl.ProgressEvent) {
			switch event.Type {
			case crawl.ProgressPage:
				fmt.Fprintln(deps.Stdout, event.URL)
			case crawl.ProgressFailed:
				fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", crawl.TruncateURL(event.URL, 60), event.Error)
			}
		},
	}

	result, err := discoverer.Discover(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stderr, "Discovered %d pages with %s (%d failed)\n",
		result.Pages, crawl.FormatCount(len(result.Records)), result.Failed)

	return nil
}
