package listwalk

import (
	"context"
	"time"
)

// Crawl modes.
const (
	ModeStatic  = "static"
	ModeBrowser = "browser"
	ModeBoth    = "both"
)

// Run represents one crawl of a listing site: its starting point, how it
// was fetched, and how it ended.
type Run struct {
	ID         string    `json:"id"`
	StartURL   string    `json:"startUrl"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Pages      int       `json:"pages"`
	Records    int       `json:"records"`
	Reason     string    `json:"reason"`
}

// Validate returns an error if the run contains invalid fields.
func (r *Run) Validate() error {
	if r.StartURL == "" {
		return Errorf(EINVALID, "run start URL required")
	}
	if r.Mode == "" {
		return Errorf(EINVALID, "run mode required")
	}
	return nil
}

// RunService represents a service for persisting crawl runs and their
// extracted records.
type RunService interface {
	// CreateRun creates a new run, assigning its ID and start time.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun updates an existing run.
	// Returns ENOTFOUND if the run does not exist.
	UpdateRun(ctx context.Context, id string, upd RunUpdate) (*Run, error)

	// AddRecords appends records extracted from pageURL to a run,
	// preserving extraction order.
	AddRecords(ctx context.Context, runID string, pageURL string, records []Record) error

	// FindRunByID retrieves a run by ID.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindRuns retrieves runs matching the filter, newest first, along
	// with the total match count ignoring limit and offset.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, int, error)

	// RunRecords retrieves a run's records in extraction order.
	RunRecords(ctx context.Context, runID string) ([]Record, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	ID   *string `json:"id"`
	Mode *string `json:"mode"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RunUpdate represents fields that can be updated on a run.
type RunUpdate struct {
	FinishedAt *time.Time `json:"finishedAt"`
	Pages      *int       `json:"pages"`
	Records    *int       `json:"records"`
	Reason     *string    `json:"reason"`
}
