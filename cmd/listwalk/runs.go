package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/crawl"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	if c.ID != "" {
		return c.dumpRun(deps)
	}

	filter := listwalk.RunFilter{}
	if c.Mode != "" {
		filter.Mode = &c.Mode
	}

	runs, _, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded. Use 'listwalk walk --db' to persist one.")
		return nil
	}

	for _, run := range runs {
		elapsed := "running"
		if !run.FinishedAt.IsZero() {
			elapsed = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %-7s  %3d pages  %s  %s  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04"),
			run.Mode,
			run.Pages,
			crawl.FormatCount(run.Records),
			run.Reason,
			elapsed,
		)
	}

	return nil
}

// dumpRun writes one run's records to stdout as JSON.
func (c *RunsCmd) dumpRun(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}

	records, err := deps.Runs.RunRecords(deps.Ctx, run.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listwalk.ErrorMessage(err))
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, string(data))

	return nil
}
