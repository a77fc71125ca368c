package vrt

import (
	"log/slog"
	"time"

	"github.com/gogpu/vrt/diff"
)

// Status is the final state of a test.
type Status uint8

const (
	// StatusPassed means every screenshot matched (some may have been recorded).
	StatusPassed Status = iota

	// StatusRecorded means the test ran for the first time and all
	// screenshots became the baseline.
	StatusRecorded

	// StatusFailed means the test returned an error.
	StatusFailed

	// StatusSkipped means the test was not selected.
	StatusSkipped
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusRecorded:
		return "recorded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// TestResult is the outcome of one test.
type TestResult struct {
	Identity string
	Name     string
	Status   Status

	// Verdicts holds one verdict per screenshot that was compared or
	// recorded, in capture order.
	Verdicts []diff.Verdict

	// Err is set when Status is StatusFailed.
	Err error

	Duration time.Duration
}

// LogValue implements slog.LogValuer.
func (r *TestResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("identity", r.Identity),
		slog.String("status", r.Status.String()),
		slog.Int("screenshots", len(r.Verdicts)),
		slog.Duration("duration", r.Duration),
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// RunResult is the outcome of running a suite tree.
type RunResult struct {
	// ID uniquely identifies the run.
	ID string

	Started  time.Time
	Duration time.Duration
	Tests    []*TestResult

	// Errors holds failures outside of any test, such as AfterAll hooks.
	Errors []error
}

// Count returns the number of tests with status s.
func (r *RunResult) Count(s Status) int {
	n := 0
	for _, t := range r.Tests {
		if t.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any test or hook failed.
func (r *RunResult) Failed() bool {
	return len(r.Errors) > 0 || r.Count(StatusFailed) > 0
}

// Observer is notified of run progress. Calls are made from the running
// goroutine, in order.
type Observer interface {
	TestStarted(identity string)
	TestFinished(r *TestResult)
	RunFinished(r *RunResult)
}
