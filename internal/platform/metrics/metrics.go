package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters exposed on /metrics.
type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	totalDurationMs atomic.Uint64

	mu           sync.Mutex
	calculations map[string]*outcomeCounts
}

type outcomeCounts struct {
	Successes uint64 `json:"successes"`
	Failures  uint64 `json:"failures"`
	Skipped   uint64 `json:"skipped"`
	Aborted   uint64 `json:"aborted"`
}

func New() *Collector {
	return &Collector{calculations: make(map[string]*outcomeCounts)}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// RecordRun adds the outcome of one calculation run (single or bulk) under
// kind, e.g. "labor" or "payroll".
func (c *Collector) RecordRun(kind string, successes, failures, skipped int, aborted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, ok := c.calculations[kind]
	if !ok {
		counts = &outcomeCounts{}
		c.calculations[kind] = counts
	}
	counts.Successes += uint64(successes)
	counts.Failures += uint64(failures)
	counts.Skipped += uint64(skipped)
	if aborted {
		counts.Aborted++
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	calcs := make(map[string]outcomeCounts, len(c.calculations))
	for kind, counts := range c.calculations {
		calcs[kind] = *counts
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":   total,
		"errorsTotal":     c.errorRequests.Load(),
		"avgDurationMs":   avg,
		"totalDurationMs": totalMs,
		"calculations":    calcs,
	}
}
