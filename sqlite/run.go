package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/crawl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ listwalk.RunService = (*RunService)(nil)

// RunService implements listwalk.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun creates a new run.
func (s *RunService) CreateRun(ctx context.Context, run *listwalk.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	run.ID = uuid.New().String()
	// Truncate so the time survives the RFC3339 round trip unchanged.
	run.StartedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, start_url, mode, started_at, finished_at, pages, records, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartURL, run.Mode, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Pages, run.Records, run.Reason)

	return err
}

// FindRunByID retrieves a run by ID.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*listwalk.Run, error) {
	var run listwalk.Run
	var startedAt, finishedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_url, mode, started_at, finished_at, pages, records, reason
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.StartURL, &run.Mode, &startedAt, &finishedAt,
		&run.Pages, &run.Records, &run.Reason)

	if err == sql.ErrNoRows {
		return nil, listwalk.Errorf(listwalk.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}

	return &run, nil
}

// FindRuns retrieves runs matching the filter, newest first, along with
// the total match count ignoring limit and offset.
func (s *RunService) FindRuns(ctx context.Context, filter listwalk.RunFilter) ([]*listwalk.Run, int, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, start_url, mode, started_at, finished_at, pages, records, reason, COUNT(*) OVER() FROM runs WHERE 1=1`)

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Mode != nil {
		query.WriteString(" AND mode = ?")
		args = append(args, *filter.Mode)
	}

	// rowid breaks ties between runs started within the same second.
	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*listwalk.Run
	var n int
	for rows.Next() {
		var run listwalk.Run
		var startedAt, finishedAt string

		if err := rows.Scan(&run.ID, &run.StartURL, &run.Mode, &startedAt, &finishedAt,
			&run.Pages, &run.Records, &run.Reason, &n); err != nil {
			return nil, 0, err
		}

		if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
			return nil, 0, err
		}
		if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
			return nil, 0, err
		}

		runs = append(runs, &run)
	}

	return runs, n, rows.Err()
}

// UpdateRun updates an existing run.
func (s *RunService) UpdateRun(ctx context.Context, id string, upd listwalk.RunUpdate) (*listwalk.Run, error) {
	// First check if run exists
	run, err := s.FindRunByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Apply updates
	if upd.FinishedAt != nil {
		run.FinishedAt = upd.FinishedAt.UTC().Truncate(time.Second)
	}
	if upd.Pages != nil {
		run.Pages = *upd.Pages
	}
	if upd.Records != nil {
		run.Records = *upd.Records
	}
	if upd.Reason != nil {
		run.Reason = *upd.Reason
	}

	// Validate before persisting
	if err := run.Validate(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, pages = ?, records = ?, reason = ?
		WHERE id = ?
	`, formatTime(run.FinishedAt), run.Pages, run.Records, run.Reason, id)

	if err != nil {
		return nil, err
	}

	return run, nil
}

// AddRecords appends records extracted from pageURL to a run,
// continuing the run's position sequence so extraction order survives
// storage.
func (s *RunService) AddRecords(ctx context.Context, runID string, pageURL string, records []listwalk.Record) error {
	if len(records) == 0 {
		return nil
	}

	var position int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position)+1, 0) FROM records WHERE run_id = ?", runID,
	).Scan(&position)
	if err != nil {
		return err
	}

	extractedAt := time.Now().UTC().Format(time.RFC3339)
	for i, record := range records {
		fields, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record fields: %w", err)
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO records (id, run_id, page_url, position, fields, fingerprint, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), runID, pageURL, position+i, string(fields),
			crawl.Fingerprint(record), extractedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// RunRecords retrieves a run's records in extraction order.
func (s *RunService) RunRecords(ctx context.Context, runID string) ([]listwalk.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fields
		FROM records
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []listwalk.Record
	for rows.Next() {
		var fields string
		if err := rows.Scan(&fields); err != nil {
			return nil, err
		}

		var record listwalk.Record
		if err := json.Unmarshal([]byte(fields), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record fields: %w", err)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}
