package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()
	c.Increment("items", 1)
	c.Increment("items", 2)
	c.Increment("other", 5)

	assert.Equal(t, int64(3), c.Counter("items"))
	assert.Equal(t, int64(5), c.Counter("other"))
	assert.Equal(t, int64(0), c.Counter("absent"))
}

func TestCollector_HistogramStats(t *testing.T) {
	c := NewCollector()
	for _, v := range []float64{1, 2, 3, 4, 5} {
		c.Observe("latency", v)
	}
	c.SetGauge("active", 2)

	snap := c.Snapshot()
	stats, ok := snap.Histograms["latency"]
	require.True(t, ok)
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
	assert.InDelta(t, 3.0, stats.Avg, 1e-9)
	assert.Equal(t, 3.0, stats.P50)
	assert.Equal(t, 5.0, stats.P95, "small samples report the max")
	assert.Equal(t, 2.0, snap.Gauges["active"])
}

func TestCollector_HistogramWindowCap(t *testing.T) {
	c := NewCollector()
	for i := 0; i < histogramWindow+50; i++ {
		c.Observe("latency", float64(i))
	}

	stats := c.Snapshot().Histograms["latency"]
	assert.Equal(t, histogramWindow, stats.Count)
	assert.Equal(t, 50.0, stats.Min, "oldest observations are dropped")
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.Increment("items", 1)

	snap := c.Snapshot()
	snap.Counters["items"] = 99

	assert.Equal(t, int64(1), c.Counter("items"))
}

func TestCollector_NilIsNoOp(t *testing.T) {
	var c *Collector
	c.Increment("items", 1)
	c.SetGauge("active", 1)
	c.Observe("latency", 1)

	assert.Equal(t, int64(0), c.Counter("items"))
	snap := c.Snapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Histograms)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Increment("items", 1)
				c.Observe("latency", float64(j))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2000), c.Counter("items"))
	assert.Equal(t, histogramWindow, c.Snapshot().Histograms["latency"].Count)
}
