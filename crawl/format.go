package crawl

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/listwalk"
)

// Fingerprint computes a stable hash of a record using xxhash.
// Records with the same fields and values hash identically regardless
// of map iteration order, so fingerprints can deduplicate records
// collected by different fetchers.
func Fingerprint(record listwalk.Record) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(record[k])
		_, _ = h.WriteString("\x00")
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		// Too short for "..." prefix, just return dots
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatBytes formats bytes in human-readable form.
func FormatBytes(bytes int) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatCount formats a record count in human-readable form.
func FormatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d records", n)
	}
	return fmt.Sprintf("%.1fk records", float64(n)/1000)
}
