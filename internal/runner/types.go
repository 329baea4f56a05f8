package runner

import (
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/discovery"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// ScriptRun represents a single script execution
type ScriptRun struct {
	Script    *discovery.Script
	SQL       string // Text sent to the database, comments stripped
	StartTime time.Time
	EndTime   time.Time
	Status    RunStatus
	Results   []*types.Result // One per statement if the script succeeded
	Error     error           // Non-nil if the script failed
}

// RunStatus represents the current state of a script execution
type RunStatus int

const (
	RunPending RunStatus = iota
	RunRunning
	RunSucceeded
	RunFailed
	RunTimeout
	RunSkipped // Nothing left to execute once comments were stripped
)

// String returns a string representation of RunStatus
func (rs RunStatus) String() string {
	switch rs {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunSucceeded:
		return "succeeded"
	case RunFailed:
		return "failed"
	case RunTimeout:
		return "timeout"
	case RunSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Duration returns the script execution duration
func (sr *ScriptRun) Duration() time.Duration {
	if sr.EndTime.IsZero() {
		return time.Since(sr.StartTime)
	}
	return sr.EndTime.Sub(sr.StartTime)
}

// RunSummary summarizes all script executions
type RunSummary struct {
	TotalScripts     int
	SucceededScripts int
	FailedScripts    int
	TimedOutScripts  int
	SkippedScripts   int
	TotalDuration    time.Duration
}

// AllSucceeded returns true if no script failed or timed out
func (s *RunSummary) AllSucceeded() bool {
	return s.FailedScripts == 0 && s.TimedOutScripts == 0
}

// ExitCode returns the appropriate exit code based on run results
func (s *RunSummary) ExitCode() int {
	if s.AllSucceeded() {
		return 0
	}
	return 1
}
