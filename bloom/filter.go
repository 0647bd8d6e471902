// Package bloom provides approximate URL set membership for
// discovery-scale deduplication.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter remembers URLs in a small, fixed amount of memory.
// Membership answers can be false positives; negatives are exact.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs with the given
// false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add records a URL in the filter.
func (f *Filter) Add(url string) {
	f.f.AddString(url)
}

// Test returns true if the URL might have been recorded.
func (f *Filter) Test(url string) bool {
	return f.f.TestString(url)
}

// TestAndAdd records a URL and returns true if it might have been
// recorded before.
func (f *Filter) TestAndAdd(url string) bool {
	return f.f.TestAndAddString(url)
}

// EstimatedCount returns the approximate number of URLs recorded.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
