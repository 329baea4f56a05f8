package runner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/console"
	"github.com/cybertec-postgresql/sqlconsole/internal/database"
	"github.com/cybertec-postgresql/sqlconsole/internal/discovery"
	"github.com/cybertec-postgresql/sqlconsole/internal/history"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/internal/report"
)

// Executor strips and executes SQL scripts against one data source
type Executor struct {
	db         database.Executor
	dataSource string
	opts       database.ExecOptions
	stdin      io.Reader
	history    *history.Store
}

// NewExecutor creates a new script executor
func NewExecutor(db database.Executor, dataSource string, opts database.ExecOptions) *Executor {
	return &Executor{
		db:         db,
		dataSource: dataSource,
		opts:       opts,
	}
}

// WithStdin sets the reader used for scripts named "-"
func (e *Executor) WithStdin(r io.Reader) *Executor {
	e.stdin = r
	return e
}

// WithHistory records every executed script in h
func (e *Executor) WithHistory(h *history.Store) *Executor {
	e.history = h
	return e
}

// Execute runs a single script. Failures are reported in the returned run.
func (e *Executor) Execute(ctx context.Context, script *discovery.Script) *ScriptRun {
	run := &ScriptRun{
		Script:    script,
		StartTime: time.Now(),
		Status:    RunPending,
	}
	defer func() { run.EndTime = time.Now() }()

	text, err := script.Read(e.stdin)
	if err != nil {
		run.Status = RunFailed
		run.Error = err
		return run
	}

	run.SQL, err = console.Prepare(text)
	if err != nil {
		logger.Debug("%s: nothing to execute", script.Name())
		run.Status = RunSkipped
		return run
	}

	run.Status = RunRunning
	logger.Debug("%s: executing %d bytes on %s", script.Name(), len(run.SQL), e.dataSource)
	run.Results, run.Error = e.db.Execute(ctx, run.SQL, e.opts)
	switch {
	case run.Error == nil:
		run.Status = RunSucceeded
	case errors.Is(run.Error, context.DeadlineExceeded):
		run.Status = RunTimeout
	default:
		run.Status = RunFailed
	}

	e.record(run)
	return run
}

func (e *Executor) record(run *ScriptRun) {
	if e.history == nil {
		return
	}
	entry := history.Entry{DataSource: e.dataSource, SQL: run.SQL}
	entry.Tally(run.Results)
	if run.Error != nil {
		entry.Error = run.Error.Error()
	}
	if _, err := e.history.Append(entry); err != nil {
		logger.Warn("failed to record history: %v", err)
	}
}

// ExecuteBatch runs multiple scripts sequentially
func (e *Executor) ExecuteBatch(ctx context.Context, scripts []discovery.Script) []*ScriptRun {
	var runs []*ScriptRun

	for i := range scripts {
		logger.Debug("Running script: %s", scripts[i].Name())
		run := e.Execute(ctx, &scripts[i])
		if run.Error != nil {
			logger.Debug("Script failed: %s: %v", scripts[i].Name(), run.Error)
		}
		runs = append(runs, run)

		if ctx.Err() != nil {
			break
		}
	}

	return runs
}

// SummarizeRuns creates a summary of script execution results
func SummarizeRuns(runs []*ScriptRun) *RunSummary {
	summary := &RunSummary{
		TotalScripts: len(runs),
	}

	for _, run := range runs {
		summary.TotalDuration += run.Duration()

		switch run.Status {
		case RunSucceeded:
			summary.SucceededScripts++
		case RunFailed:
			summary.FailedScripts++
		case RunTimeout:
			summary.TimedOutScripts++
		case RunSkipped:
			summary.SkippedScripts++
		}
	}

	return summary
}

// BuildReport converts runs into a report. Skipped scripts are left out.
func BuildReport(title string, runs []*ScriptRun) *report.Report {
	rep := &report.Report{Title: title, Generated: time.Now()}
	for _, run := range runs {
		if run.Status == RunSkipped {
			continue
		}
		section := report.Section{
			Title:   run.Script.Name(),
			SQL:     run.SQL,
			Results: run.Results,
		}
		if run.Error != nil {
			section.Error = run.Error.Error()
		}
		rep.Sections = append(rep.Sections, section)
	}
	return rep
}
