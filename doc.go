// Package vrt is a visual regression test harness.
//
// # Overview
//
// A test renders a subject, captures one or more screenshots, and compares
// them with baselines recorded on an earlier run. The first run of a test
// records its baselines; every later run must reproduce them within the
// configured tolerance. Deleting a baseline re-records it.
//
// # Quick Start
//
//	st := fsstore.New("testdata/baselines")
//	h, err := vrt.NewHarness(
//	    vrt.WithStore(st),
//	    vrt.WithSubjects(ggsubject.Factory(200, 100, drawButton)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	root := vrt.NewSuite("widgets")
//	root.Describe("button", func(s *vrt.Suite) {
//	    s.It("idle", vrt.Snapshot())
//	    s.It("hover", vrt.Steps(hover), vrt.WithShiftThreshold(0))
//	})
//
//	run := vrt.NewRunner(h).Run(ctx, root)
//
// # Identities
//
// A test identity is the path of its suite names and its own name, joined
// with "/". Names are NFC-normalized and any "/" or "\" inside a name is
// percent-encoded, so "a/b" is one segment "a%2Fb". Baselines are stored
// under the identity:
//
//	widgets/button/idle/metadata.json   {"numScreenshots":1}
//	widgets/button/idle/000.png
//
// # Comparison
//
// Captures are taken at pixel density 1, normalized to a bounded size on an
// out-of-domain background, and compared with the perceptual comparator of
// package diff. Differences are grouped into 8-connected clusters; only a
// few large clusters fail a test. See [diff.Judge].
//
// # Suites
//
// Suites nest. Each suite pushes a [Frame] onto a [Stack] for the duration
// of its tests and pops it on every exit path. [Focus] and [Skip] select
// which tests run; [WithShiftThreshold], [WithTolerance] and [WithDensity]
// apply to a node and all its descendants.
//
// # Running
//
// Package vrttest runs a suite inside go test, one subtest per test. The
// vrt command (cmd/vrt) runs suites of web pages declared in vrt.yaml
// through headless Chrome and writes HTML and JSON reports.
package vrt
