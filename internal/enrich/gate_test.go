package enrich

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/risk"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// stubOracle counts calls and tracks how many are in flight simultaneously.
type stubOracle struct {
	name       string
	adjustment float64
	err        error
	latency    time.Duration
	jitter     bool

	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (o *stubOracle) Name() string { return o.name }

func (o *stubOracle) Classify(_ context.Context, _ types.ContentItem, _ types.RuleSignal) (types.OracleOpinion, error) {
	o.calls.Add(1)
	cur := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		seen := o.maxSeen.Load()
		if cur <= seen || o.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	sleep := o.latency
	if o.jitter {
		sleep += time.Duration(rand.Intn(5)) * time.Millisecond
	}
	if sleep > 0 {
		time.Sleep(sleep)
	}

	if o.err != nil {
		return types.OracleOpinion{}, o.err
	}
	return types.OracleOpinion{Adjustment: o.adjustment, Label: types.LevelMedium}, nil
}

// visionStub only wants items with images.
type visionStub struct {
	stubOracle
}

func (o *visionStub) Wants(item types.ContentItem) bool { return item.HasImage() }

func scoredItems(n int, score float64) []ScoredItem {
	items := make([]ScoredItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, ScoredItem{
			Item:   types.ContentItem{ID: fmt.Sprintf("item-%d", i), Text: "some text", Source: "test"},
			Signal: types.RuleSignal{Score: score, Confidence: 0.9},
		})
	}
	return items
}

func collectResults(ch <-chan types.ItemResult) []types.ItemResult {
	var results []types.ItemResult
	for res := range ch {
		results = append(results, res)
	}
	return results
}

func TestGate_EveryItemExactlyOnce(t *testing.T) {
	stub := &stubOracle{name: "stub", adjustment: 0.5, latency: time.Millisecond, jitter: true}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{OracleEnabled: true})

	results := collectResults(g.Run(context.Background(), scoredItems(20, 0.5), nil))

	require.Len(t, results, 20)
	seen := make(map[string]int)
	for _, res := range results {
		seen[res.Item.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "item %s delivered more than once", id)
	}
}

func TestGate_ConcurrencyBound(t *testing.T) {
	stub := &stubOracle{name: "stub", adjustment: 0, latency: 10 * time.Millisecond, jitter: true}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{
		Concurrency:   3,
		OracleEnabled: true,
		Force:         true,
	})

	results := collectResults(g.Run(context.Background(), scoredItems(30, 0.9), nil))

	require.Len(t, results, 30)
	assert.LessOrEqual(t, stub.maxSeen.Load(), int64(3), "more than 3 oracle calls in flight")
	assert.Equal(t, int64(30), stub.calls.Load())
}

func TestGate_TriageSkipsOutsideBand(t *testing.T) {
	stub := &stubOracle{name: "stub", adjustment: 0.5}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{OracleEnabled: true})

	items := []ScoredItem{
		{Item: types.ContentItem{ID: "low"}, Signal: types.RuleSignal{Score: 0.1}},
		{Item: types.ContentItem{ID: "band"}, Signal: types.RuleSignal{Score: 0.5}},
		{Item: types.ContentItem{ID: "high"}, Signal: types.RuleSignal{Score: 0.9}},
	}
	results := collectResults(g.Run(context.Background(), items, nil))

	require.Len(t, results, 3)
	assert.Equal(t, int64(1), stub.calls.Load(), "only the triage-band item consults the oracle")

	byID := make(map[string]types.ItemResult)
	for _, res := range results {
		byID[res.Item.ID] = res
	}
	assert.Equal(t, types.ProvenanceRules, byID["low"].Assessment.Provenance)
	assert.Equal(t, types.ProvenanceHybrid, byID["band"].Assessment.Provenance)
	assert.Equal(t, types.ProvenanceRules, byID["high"].Assessment.Provenance)
	assert.Equal(t, 0.9, byID["high"].Assessment.FinalScore, "untouched rule score passes through exactly")
}

func TestGate_PrefilterFloorSkipsCheapItems(t *testing.T) {
	stub := &stubOracle{name: "stub"}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{
		PrefilterFloor: 0.25,
		OracleEnabled:  true,
		Force:          true,
	})

	items := []ScoredItem{
		{Item: types.ContentItem{ID: "skip"}, Signal: types.RuleSignal{Score: 0.1}},
		{Item: types.ContentItem{ID: "go"}, Signal: types.RuleSignal{Score: 0.3}},
	}
	results := collectResults(g.Run(context.Background(), items, nil))

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), stub.calls.Load(), "the prefilter floor beats force")
}

func TestGate_OracleDisabled(t *testing.T) {
	stub := &stubOracle{name: "stub", adjustment: 1.0}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{OracleEnabled: false})

	results := collectResults(g.Run(context.Background(), scoredItems(5, 0.5), nil))

	require.Len(t, results, 5)
	assert.Zero(t, stub.calls.Load())
	for _, res := range results {
		assert.Equal(t, types.ProvenanceRules, res.Assessment.Provenance)
		assert.Equal(t, 0.5, res.Assessment.FinalScore)
	}
}

func TestGate_OracleFailureFallsBackToRules(t *testing.T) {
	failing := &stubOracle{name: "down", err: fmt.Errorf("upstream unavailable")}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{failing}, Options{OracleEnabled: true})

	results := collectResults(g.Run(context.Background(), scoredItems(1, 0.5), nil))

	require.Len(t, results, 1)
	as := results[0].Assessment
	assert.Equal(t, types.ProvenanceRules, as.Provenance, "a failed oracle contributes nothing")
	assert.Equal(t, 0.5, as.FinalScore)
	assert.Empty(t, as.Contributions)
}

func TestGate_PartialOracleFailure(t *testing.T) {
	failing := &stubOracle{name: "down", err: fmt.Errorf("timeout")}
	working := &stubOracle{name: "up", adjustment: 1.0}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{failing, working}, Options{OracleEnabled: true})

	results := collectResults(g.Run(context.Background(), scoredItems(1, 0.5), nil))

	require.Len(t, results, 1)
	as := results[0].Assessment
	assert.Equal(t, types.ProvenanceHybrid, as.Provenance)
	require.Len(t, as.Contributions, 1)
	assert.Equal(t, "up", as.Contributions[0].Source)
	assert.InDelta(t, 0.7, as.FinalScore, 0.001)
}

func TestGate_VisionOracleSkipsTextOnlyItems(t *testing.T) {
	vision := &visionStub{stubOracle: stubOracle{name: "vision", adjustment: 0.5}}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{vision}, Options{OracleEnabled: true})

	items := []ScoredItem{
		{Item: types.ContentItem{ID: "text-only", Text: "hello"}, Signal: types.RuleSignal{Score: 0.5}},
		{Item: types.ContentItem{ID: "with-image", ImageURL: "https://example.com/x.png"}, Signal: types.RuleSignal{Score: 0.5}},
	}
	results := collectResults(g.Run(context.Background(), items, nil))

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), vision.calls.Load())

	byID := make(map[string]types.ItemResult)
	for _, res := range results {
		byID[res.Item.ID] = res
	}
	assert.Equal(t, types.ProvenanceRules, byID["text-only"].Assessment.Provenance,
		"an item no oracle wants must not look oracle-touched")
	assert.Equal(t, types.ProvenanceHybrid, byID["with-image"].Assessment.Provenance)
}

func TestGate_CancellationDiscardsResults(t *testing.T) {
	var cancelled atomic.Bool
	stub := &stubOracle{name: "stub", latency: 20 * time.Millisecond}
	g := NewGate(risk.NewFusion(), []oracle.Oracle{stub}, Options{OracleEnabled: true})

	ch := g.Run(context.Background(), scoredItems(10, 0.5), cancelled.Load)

	// Cancel while oracle calls are still in flight.
	time.Sleep(5 * time.Millisecond)
	cancelled.Store(true)

	results := collectResults(ch)
	assert.Less(t, len(results), 10, "results arriving after cancellation are discarded")
}

func TestGate_NoOraclesRulesOnly(t *testing.T) {
	g := NewGate(risk.NewFusion(), nil, Options{OracleEnabled: true, Force: true})

	results := collectResults(g.Run(context.Background(), scoredItems(3, 0.6), nil))

	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, types.ProvenanceRules, res.Assessment.Provenance)
	}
}
