package report

import (
	"sync"

	"github.com/gogpu/vrt"
)

// Collector is a vrt.Observer that keeps the results of the last finished
// run for rendering after the fact.
type Collector struct {
	mu      sync.Mutex
	running []*vrt.TestResult
	last    *vrt.RunResult
}

// TestStarted implements vrt.Observer.
func (c *Collector) TestStarted(string) {}

// TestFinished implements vrt.Observer.
func (c *Collector) TestFinished(r *vrt.TestResult) {
	c.mu.Lock()
	c.running = append(c.running, r)
	c.mu.Unlock()
}

// RunFinished implements vrt.Observer.
func (c *Collector) RunFinished(r *vrt.RunResult) {
	c.mu.Lock()
	c.last = r
	c.running = nil
	c.mu.Unlock()
}

// Last returns the most recently finished run, or nil.
func (c *Collector) Last() *vrt.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Pending returns the results finished so far in the current run.
func (c *Collector) Pending() []*vrt.TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*vrt.TestResult(nil), c.running...)
}
