// Package metrics aggregates counters, gauges and latency histograms for the
// assessment pipeline. A Collector is constructed explicitly and handed to
// the components that record into it, so isolated instances can coexist.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// histogramWindow caps how many observations a histogram retains.
const histogramWindow = 1000

// Collector is a thread-safe metrics sink. All methods are no-ops on a nil
// receiver so instrumentation points never need a guard.
type Collector struct {
	mu         sync.Mutex
	started    time.Time
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		started:    time.Now(),
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// Increment adds delta to the named counter.
func (c *Collector) Increment(name string, delta int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// SetGauge records the current value of the named gauge.
func (c *Collector) SetGauge(name string, value float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
}

// Observe appends one value to the named histogram, keeping only the most
// recent observations.
func (c *Collector) Observe(name string, value float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	values := append(c.histograms[name], value)
	if len(values) > histogramWindow {
		values = values[len(values)-histogramWindow:]
	}
	c.histograms[name] = values
}

// Counter returns the current value of the named counter.
func (c *Collector) Counter(name string) int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// HistogramStats summarizes one histogram's retained observations.
type HistogramStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Snapshot is a point-in-time copy of everything the collector holds.
type Snapshot struct {
	UptimeSeconds float64                   `json:"uptime_seconds"`
	Counters      map[string]int64          `json:"counters"`
	Gauges        map[string]float64        `json:"gauges"`
	Histograms    map[string]HistogramStats `json:"histograms"`
	CollectedAt   time.Time                 `json:"collected_at"`
}

// Snapshot returns a copy of the current metrics. The returned maps are
// owned by the caller.
func (c *Collector) Snapshot() Snapshot {
	now := time.Now()
	snap := Snapshot{
		Counters:    make(map[string]int64),
		Gauges:      make(map[string]float64),
		Histograms:  make(map[string]HistogramStats),
		CollectedAt: now.UTC(),
	}
	if c == nil {
		return snap
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	snap.UptimeSeconds = now.Sub(c.started).Seconds()
	for name, v := range c.counters {
		snap.Counters[name] = v
	}
	for name, v := range c.gauges {
		snap.Gauges[name] = v
	}
	for name, values := range c.histograms {
		snap.Histograms[name] = summarize(values)
	}
	return snap
}

func summarize(values []float64) HistogramStats {
	if len(values) == 0 {
		return HistogramStats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	p95 := sorted[n-1]
	if n > 20 {
		p95 = sorted[int(float64(n)*0.95)]
	}
	return HistogramStats{
		Count: n,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   p95,
	}
}
