// Package report renders run results: a text table for terminals, a
// self-contained HTML page, a JSON results file, and per-mismatch image
// artifacts.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/diff"
)

// Summary writes a table with one row per test and a totals footer.
// With color, the table style reflects the overall outcome.
func Summary(w io.Writer, run *vrt.RunResult, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run %s", run.ID)

	t.AppendHeader(table.Row{"Test", "Status", "Shots", "Diff px", "Significant px", "Clusters", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Shots", Align: text.AlignRight},
		{Name: "Diff px", Align: text.AlignRight},
		{Name: "Significant px", Align: text.AlignRight},
		{Name: "Clusters", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, r := range run.Tests {
		diffPx, sigPx, clusters := totals(r.Verdicts)
		t.AppendRow(table.Row{
			r.Identity,
			statusText(r.Status),
			len(r.Verdicts),
			diffPx,
			sigPx,
			clusters,
			formatDuration(r.Duration),
		})
	}

	t.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%d passed, %d recorded, %d failed, %d skipped",
			run.Count(vrt.StatusPassed), run.Count(vrt.StatusRecorded),
			run.Count(vrt.StatusFailed), run.Count(vrt.StatusSkipped)),
		"", "", "", "",
		formatDuration(run.Duration),
	})

	switch {
	case !color:
		t.SetStyle(table.StyleLight)
	case run.Failed():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case run.Count(vrt.StatusRecorded) > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Render()

	for _, err := range run.Errors {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

func totals(vs []diff.Verdict) (diffPx, sigPx, clusters int) {
	for _, v := range vs {
		diffPx += v.DiffPixels
		sigPx += v.SignificantPixels
		clusters += v.SignificantClusters
	}
	return diffPx, sigPx, clusters
}

func statusText(s vrt.Status) string {
	switch s {
	case vrt.StatusPassed:
		return "✓ passed"
	case vrt.StatusRecorded:
		return "● recorded"
	case vrt.StatusFailed:
		return "✗ failed"
	default:
		return "- " + s.String()
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
