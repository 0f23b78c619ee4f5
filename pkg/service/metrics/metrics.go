package metrics

import (
	"sync"
	"time"
)

// Collector aggregates per-operation counters and timers. All methods are
// safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	ops       map[string]*opMetric
	startedAt time.Time
}

type opMetric struct {
	count      int64
	totalTime  time.Duration
	errorCount int64
	extras     map[string]float64
}

// OpSnapshot is the exported view of one operation's metrics
type OpSnapshot struct {
	Count      int64              `json:"count"`
	TotalTime  float64            `json:"total_time"`
	AvgTime    float64            `json:"avg_time"`
	ErrorCount int64              `json:"error_count"`
	Extras     map[string]float64 `json:"extras,omitempty"`
}

// Snapshot is the full exported metrics view
type Snapshot struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	Operations    map[string]OpSnapshot `json:"operations"`
}

// New creates an empty collector
func New() *Collector {
	return &Collector{
		ops:       make(map[string]*opMetric),
		startedAt: time.Now(),
	}
}

func (c *Collector) metric(op string) *opMetric {
	m, ok := c.ops[op]
	if !ok {
		m = &opMetric{}
		c.ops[op] = m
	}
	return m
}

// Observe records one completed operation
func (c *Collector) Observe(op string, d time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metric(op)
	m.count++
	m.totalTime += d
	if failed {
		m.errorCount++
	}
}

// ObserveExtra records one completed operation with an extra accumulated
// value, e.g. token usage for LLM calls or result counts for searches
func (c *Collector) ObserveExtra(op string, d time.Duration, failed bool, extraKey string, extraValue float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metric(op)
	m.count++
	m.totalTime += d
	if failed {
		m.errorCount++
	}
	if m.extras == nil {
		m.extras = make(map[string]float64)
	}
	m.extras[extraKey] += extraValue
}

// RecordError counts an error occurrence outside a timed operation
func (c *Collector) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metric("errors_" + kind)
	m.count++
	m.errorCount++
}

// Snapshot returns a copy of all collected metrics
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
		Operations:    make(map[string]OpSnapshot, len(c.ops)),
	}

	for op, m := range c.ops {
		s := OpSnapshot{
			Count:      m.count,
			TotalTime:  m.totalTime.Seconds(),
			ErrorCount: m.errorCount,
		}
		if m.count > 0 {
			s.AvgTime = m.totalTime.Seconds() / float64(m.count)
		}
		if len(m.extras) > 0 {
			s.Extras = make(map[string]float64, len(m.extras))
			for k, v := range m.extras {
				s.Extras[k] = v
			}
		}
		snap.Operations[op] = s
	}

	return snap
}

// Reset discards all collected metrics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = make(map[string]*opMetric)
}
