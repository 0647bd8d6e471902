package crawl

import (
	"context"

	"github.com/fwojciec/listwalk"
)

// NeedsBrowser compares records extracted from a statically fetched page
// against the same page rendered in a browser. Returns true if rendering
// yields significantly more records (>50%), suggesting the listing is
// populated by JavaScript. A static extraction failure also counts as
// needing a browser; a rendered extraction failure does not.
func NeedsBrowser(ctx context.Context, static, rendered *listwalk.Page, extractor listwalk.Extractor) bool {
	staticRecords, err := extractor.Extract(ctx, static)
	if err != nil {
		return true // Assume JS needed on error
	}

	renderedRecords, err := extractor.Extract(ctx, rendered)
	if err != nil {
		return false
	}

	staticCount := len(staticRecords)
	renderedCount := len(renderedRecords)

	// Handle empty static extraction
	if staticCount == 0 {
		return renderedCount > 0
	}

	// Check if rendering yields >50% more records
	threshold := float64(staticCount) * 1.5
	return float64(renderedCount) > threshold
}
