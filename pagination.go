package listwalk

// Strategy identifies which pagination heuristic produced a candidate.
type Strategy int

// Pagination strategies in the order they are tried.
const (
	StrategyNextButton Strategy = iota
	StrategyNumberedLink
	StrategyLoadMore
	StrategyConstructed
)

// String returns the snake_case name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyNextButton:
		return "next_button"
	case StrategyNumberedLink:
		return "numbered_link"
	case StrategyLoadMore:
		return "load_more"
	case StrategyConstructed:
		return "constructed"
	default:
		return "unknown"
	}
}

// Candidate is a resolved next-page URL together with the strategy that
// found it. Candidates are ephemeral: produced per page, never retained.
type Candidate struct {
	URL      string
	Strategy Strategy
}

// Paginator decides which page to visit next.
type Paginator interface {
	// ResolveNext inspects page and returns the first next-page candidate
	// not already in visited, adding it to visited before returning.
	// Relative link targets are resolved against page.URL. A (nil, nil)
	// return means no fresh next page exists: the normal end of a walk,
	// not an error.
	ResolveNext(page *Page, visited *VisitedSet) (*Candidate, error)

	// ListPageURLs collects every link found inside known pagination
	// containers, resolved absolute, each URL at most once, in
	// first-seen order. The result is capped at limit when limit > 0.
	// It performs no dedup against any VisitedSet.
	ListPageURLs(page *Page, limit int) ([]string, error)
}
