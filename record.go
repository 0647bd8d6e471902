package listwalk

import "context"

// Record is a single extracted listing item: a flat mapping of field
// names to text values (e.g. name, price, link).
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Extractor turns a listing page into records.
type Extractor interface {
	// Extract parses the page body and returns one record per listed
	// item. An empty result is not an error: it means the page holds
	// nothing extractable (a malformed or interstitial page), and the
	// crawl continues past it.
	Extract(ctx context.Context, page *Page) ([]Record, error)
}
