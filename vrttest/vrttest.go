// Package vrttest runs visual regression suites inside go test.
//
// Each test of a suite becomes a subtest named after its identity, so
// `go test -run 'TestVisual/buttons/primary'` works as expected.
//
//	func TestVisual(t *testing.T) {
//	    h := vrttest.NewHarness(t, "testdata/baselines", ggsubject.Factory(200, 100, draw))
//	    root := vrt.NewSuite("")
//	    root.Describe("buttons", func(s *vrt.Suite) {
//	        s.It("primary", vrt.Snapshot())
//	    })
//	    vrttest.Run(t, h, root)
//	}
package vrttest

import (
	"errors"
	"testing"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/store/fsstore"
)

// NewHarness returns a harness storing baselines under dir. Extra options
// are applied after the store and subjects.
func NewHarness(t testing.TB, dir string, subjects vrt.SubjectFactory, opts ...vrt.HarnessOption) *vrt.Harness {
	t.Helper()
	base := []vrt.HarnessOption{vrt.WithStore(fsstore.New(dir)), vrt.WithSubjects(subjects)}
	h, err := vrt.NewHarness(append(base, opts...)...)
	if err != nil {
		t.Fatalf("vrttest: %v", err)
	}
	return h
}

// Run runs root on h and reports every test as a subtest of t.
// Mismatches log their diagnostic images as data URIs.
func Run(t *testing.T, h *vrt.Harness, root *vrt.Suite) *vrt.RunResult {
	t.Helper()
	run := vrt.NewRunner(h).Run(t.Context(), root)

	for _, res := range run.Tests {
		t.Run(res.Identity, func(t *testing.T) {
			Report(t, res)
		})
	}
	for _, err := range run.Errors {
		t.Error(err)
	}
	return run
}

// Report marks t according to res.
func Report(t testing.TB, res *vrt.TestResult) {
	t.Helper()
	switch res.Status {
	case vrt.StatusSkipped:
		t.Skip("skipped")
	case vrt.StatusRecorded:
		t.Logf("recorded %d baseline screenshot(s)", len(res.Verdicts))
	case vrt.StatusFailed:
		var mm *vrt.MismatchError
		if errors.As(res.Err, &mm) {
			t.Error(mm.Diagnostic())
			return
		}
		t.Error(res.Err)
	default:
		t.Logf("%d screenshot(s) match", len(res.Verdicts))
	}
}
