package listwalk

import "sync"

// VisitedSet tracks page URLs already resolved during one crawl run.
// A URL present in the set is never handed out again as "next", which is
// what breaks pagination cycles (sites that link page N back to page 1).
//
// The zero value is not usable; construct with NewVisitedSet. The set is
// exact (not probabilistic): a false positive here would silently drop a
// real next page. Safe for concurrent use.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedSet returns an empty set, optionally pre-seeded with URLs.
func NewVisitedSet(seed ...string) *VisitedSet {
	s := &VisitedSet{urls: make(map[string]struct{}, len(seed))}
	for _, u := range seed {
		s.urls[u] = struct{}{}
	}
	return s
}

// Add inserts url and reports whether it was newly added.
func (s *VisitedSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Has reports whether url is in the set.
func (s *VisitedSet) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}
