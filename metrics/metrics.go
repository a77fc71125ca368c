// Package metrics exports run statistics as Prometheus metrics.
//
// A Metrics value is a vrt.Observer; register it with vrt.WithObserver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/diff"
)

// Namespace prefixes every metric name.
const Namespace = "vrt"

var statuses = []vrt.Status{vrt.StatusPassed, vrt.StatusRecorded, vrt.StatusFailed, vrt.StatusSkipped}

// Metrics collects test and comparison statistics.
type Metrics struct {
	testsTotal    *prometheus.CounterVec
	testDuration  prometheus.Histogram
	diffPixels    prometheus.Histogram
	significant   prometheus.Histogram
	runsTotal     prometheus.Counter
	lastRunTests  *prometheus.GaugeVec
	lastRunFailed prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		testsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tests_total",
			Help:      "Number of finished tests by status.",
		}, []string{"status"}),
		testDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of executed tests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		diffPixels: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "diff_pixels",
			Help:      "Flagged pixels per compared screenshot.",
			Buckets:   []float64{0, 1, 4, 16, 40, 100, 400, 1600, 6400},
		}),
		significant: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "significant_diff_pixels",
			Help:      "Pixels in significant clusters per compared screenshot.",
			Buckets:   []float64{0, 4, 16, 40, 100, 400, 1600},
		}),
		runsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Number of finished runs.",
		}),
		lastRunTests: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_tests",
			Help:      "Tests by status in the most recent run.",
		}, []string{"status"}),
		lastRunFailed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_failed",
			Help:      "1 if the most recent run failed, else 0.",
		}),
	}

	// Expose every status from the start so rates work before the first
	// failure.
	for _, s := range statuses {
		m.testsTotal.WithLabelValues(s.String())
	}
	return m
}

// TestStarted implements vrt.Observer.
func (m *Metrics) TestStarted(string) {}

// TestFinished implements vrt.Observer.
func (m *Metrics) TestFinished(r *vrt.TestResult) {
	m.testsTotal.WithLabelValues(r.Status.String()).Inc()
	if r.Status == vrt.StatusSkipped {
		return
	}
	m.testDuration.Observe(r.Duration.Seconds())
	for _, v := range r.Verdicts {
		if v.Outcome == diff.BaselineRecorded {
			continue
		}
		m.diffPixels.Observe(float64(v.DiffPixels))
		m.significant.Observe(float64(v.SignificantPixels))
	}
}

// RunFinished implements vrt.Observer.
func (m *Metrics) RunFinished(r *vrt.RunResult) {
	m.runsTotal.Inc()
	for _, s := range statuses {
		m.lastRunTests.WithLabelValues(s.String()).Set(float64(r.Count(s)))
	}
	if r.Failed() {
		m.lastRunFailed.Set(1)
	} else {
		m.lastRunFailed.Set(0)
	}
}

// WriteTextfile writes all metrics gathered by g to path in the text
// exposition format, for the node exporter's textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
