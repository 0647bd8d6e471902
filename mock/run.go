package mock

import (
	"context"

	"github.com/fwojciec/listwalk"
)

var _ listwalk.RunService = (*RunService)(nil)

// RunService is a mock implementation of listwalk.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *listwalk.Run) error
	UpdateRunFn   func(ctx context.Context, id string, upd listwalk.RunUpdate) (*listwalk.Run, error)
	AddRecordsFn  func(ctx context.Context, runID, pageURL string, records []listwalk.Record) error
	FindRunByIDFn func(ctx context.Context, id string) (*listwalk.Run, error)
	FindRunsFn    func(ctx context.Context, filter listwalk.RunFilter) ([]*listwalk.Run, int, error)
	RunRecordsFn  func(ctx context.Context, runID string) ([]listwalk.Record, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *listwalk.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) UpdateRun(ctx context.Context, id string, upd listwalk.RunUpdate) (*listwalk.Run, error) {
	return s.UpdateRunFn(ctx, id, upd)
}

func (s *RunService) AddRecords(ctx context.Context, runID, pageURL string, records []listwalk.Record) error {
	return s.AddRecordsFn(ctx, runID, pageURL, records)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*listwalk.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter listwalk.RunFilter) ([]*listwalk.Run, int, error) {
	return s.FindRunsFn(ctx, filter)
}

func (s *RunService) RunRecords(ctx context.Context, runID string) ([]listwalk.Record, error) {
	return s.RunRecordsFn(ctx, runID)
}
