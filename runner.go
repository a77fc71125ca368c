package vrt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPanic wraps a panic recovered from a test scenario or subject.
	ErrPanic = errors.New("vrt: test panicked")

	// ErrHook wraps a failing BeforeAll or AfterAll hook.
	ErrHook = errors.New("vrt: suite hook failed")
)

// Runner executes a suite tree on a Harness.
//
// Tests run one at a time in registration order. Every suite is entered
// through a Stack, so a failing or panicking test never leaks its naming or
// tolerance context into its siblings.
type Runner struct {
	h *Harness
}

// NewRunner creates a runner for h.
func NewRunner(h *Harness) *Runner {
	return &Runner{h: h}
}

// Run runs every selected test of root and returns the results of all tests,
// skipped ones included. Observers see TestFinished for every test and
// RunFinished once at the end.
func (r *Runner) Run(ctx context.Context, root *Suite) *RunResult {
	run := &RunResult{ID: uuid.NewString(), Started: time.Now()}
	plan := Select(root)

	log := Logger().With("run", run.ID)
	log.Info("vrt: run started", "selected", plan.Count(), "focused", plan.Focused())

	r.runSuite(ctx, NewStack(r.h.root), plan, root, run)

	run.Duration = time.Since(run.Started)
	log.Info("vrt: run finished",
		"passed", run.Count(StatusPassed),
		"recorded", run.Count(StatusRecorded),
		"failed", run.Count(StatusFailed),
		"skipped", run.Count(StatusSkipped),
		"duration", run.Duration)

	for _, o := range r.h.observers {
		o.RunFinished(run)
	}
	return run
}

func (r *Runner) runSuite(ctx context.Context, stack *Stack, plan *Plan, s *Suite, run *RunResult) {
	if !plan.Active(s) {
		for _, t := range s.Tests() {
			r.finish(run, skipped(t))
		}
		return
	}

	_ = stack.Within(s.name, s.opts, func(f Frame) error {
		var hookErr error
		if err := runHooks(ctx, s.beforeAll); err != nil {
			hookErr = fmt.Errorf("%w: %q before all: %w", ErrHook, f.Prefix, err)
			Logger().Error("vrt: before all failed", "suite", f.Prefix, "error", err)
		}
		defer func() {
			if err := runHooks(ctx, s.afterAll); err != nil {
				Logger().Error("vrt: after all failed", "suite", f.Prefix, "error", err)
				run.Errors = append(run.Errors, fmt.Errorf("%w: %q after all: %w", ErrHook, f.Prefix, err))
			}
		}()

		for _, c := range s.children {
			switch n := c.(type) {
			case *Suite:
				if hookErr != nil {
					r.failAll(plan, n, hookErr, run)
					continue
				}
				r.runSuite(ctx, stack, plan, n, run)
			case *Test:
				r.runTest(ctx, stack, plan, n, hookErr, run)
			}
		}
		return nil
	})
}

func (r *Runner) runTest(ctx context.Context, stack *Stack, plan *Plan, t *Test, hookErr error, run *RunResult) {
	if !plan.Selected(t) {
		r.finish(run, skipped(t))
		return
	}

	f := stack.Current().child("", newNodeConfig(t.opts))
	id := f.Identity(t.name)
	for _, o := range r.h.observers {
		o.TestStarted(id)
	}

	var res *TestResult
	switch {
	case hookErr != nil:
		res = failed(id, t.name, hookErr)
	case plan.Duplicate(t):
		res = failed(id, t.name, fmt.Errorf("%w: %s", ErrDuplicateIdentity, id))
	case ctx.Err() != nil:
		res = failed(id, t.name, ctx.Err())
	default:
		res = r.guarded(ctx, f, t)
	}
	r.finish(run, res)
}

// guarded runs t and converts a panic into a failed result.
func (r *Runner) guarded(ctx context.Context, f Frame, t *Test) (res *TestResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			id := f.Identity(t.name)
			Logger().Error("vrt: test panicked", "identity", id, "panic", p)
			res = failed(id, t.name, fmt.Errorf("%w: %v", ErrPanic, p))
			res.Duration = time.Since(start)
		}
	}()
	return r.h.RunTest(ctx, f, t.name, t.scenario)
}

// failAll fails every selected test below s without entering it.
func (r *Runner) failAll(plan *Plan, s *Suite, err error, run *RunResult) {
	for _, t := range s.Tests() {
		if plan.Selected(t) {
			r.finish(run, failed(t.Identity(), t.name, err))
		} else {
			r.finish(run, skipped(t))
		}
	}
}

func (r *Runner) finish(run *RunResult, res *TestResult) {
	run.Tests = append(run.Tests, res)
	for _, o := range r.h.observers {
		o.TestFinished(res)
	}
}

func runHooks(ctx context.Context, hooks []Hook) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	for _, h := range hooks {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

func failed(id, name string, err error) *TestResult {
	return &TestResult{Identity: id, Name: name, Status: StatusFailed, Err: err}
}

func skipped(t *Test) *TestResult {
	return &TestResult{Identity: t.Identity(), Name: t.name, Status: StatusSkipped}
}
