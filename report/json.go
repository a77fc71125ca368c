package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gogpu/vrt"
)

// ResultsFile is the name of the JSON results written by Write.
const ResultsFile = "results.json"

// File is the JSON form of a run.
type File struct {
	RunID      string         `json:"runId"`
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"durationMs"`
	Counts     map[string]int `json:"counts"`
	Errors     []string       `json:"errors,omitempty"`
	Tests      []Test         `json:"tests"`
}

// Test is the JSON form of a test result.
type Test struct {
	Identity    string `json:"identity"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"durationMs"`
	Screenshots []Shot `json:"screenshots,omitempty"`
}

// Shot is the JSON form of one verdict.
type Shot struct {
	Index               int    `json:"index"`
	Outcome             string `json:"outcome"`
	DiffPixels          int    `json:"diffPixels"`
	SignificantPixels   int    `json:"significantPixels"`
	Clusters            int    `json:"clusters"`
	SignificantClusters int    `json:"significantClusters"`
}

// NewFile converts a run.
func NewFile(run *vrt.RunResult) *File {
	f := &File{
		RunID:      run.ID,
		Started:    run.Started,
		DurationMS: run.Duration.Milliseconds(),
		Counts:     make(map[string]int),
		Tests:      make([]Test, 0, len(run.Tests)),
	}
	for _, s := range []vrt.Status{vrt.StatusPassed, vrt.StatusRecorded, vrt.StatusFailed, vrt.StatusSkipped} {
		f.Counts[s.String()] = run.Count(s)
	}
	for _, err := range run.Errors {
		f.Errors = append(f.Errors, err.Error())
	}
	for _, r := range run.Tests {
		t := Test{
			Identity:   r.Identity,
			Name:       r.Name,
			Status:     r.Status.String(),
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			t.Error = r.Err.Error()
		}
		for i, v := range r.Verdicts {
			t.Screenshots = append(t.Screenshots, Shot{
				Index:               i,
				Outcome:             v.Outcome.String(),
				DiffPixels:          v.DiffPixels,
				SignificantPixels:   v.SignificantPixels,
				Clusters:            v.Clusters,
				SignificantClusters: v.SignificantClusters,
			})
		}
		f.Tests = append(f.Tests, t)
	}
	return f
}

// WriteJSON writes run as indented JSON.
func WriteJSON(w io.Writer, run *vrt.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewFile(run))
}

// ReadJSON reads a File written by WriteJSON.
func ReadJSON(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", ResultsFile, err)
	}
	return &f, nil
}
