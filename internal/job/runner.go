package job

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/risk-sentinel/internal/collect"
	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/metrics"
	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/risk"
	"github.com/jonathan/risk-sentinel/internal/rules"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// SourceResolver maps a source id from job parameters onto a collection
// collaborator. Unknown ids are reported per source, never fatal unless no
// source resolves at all.
type SourceResolver func(id string) (collect.Source, bool)

// RunnerConfig wires the runner's collaborators.
type RunnerConfig struct {
	Engine         *rules.Engine
	Fusion         *risk.Fusion
	Oracles        []oracle.Oracle
	Resolve        SourceResolver
	Concurrency    int64
	PrefilterFloor float64
	// Metrics receives per-item and per-job measurements when set.
	Metrics *metrics.Collector
}

// Runner executes jobs: collection, rule scoring, bounded oracle enrichment,
// and event publication. One long-lived background task runs per active job.
type Runner struct {
	store *Store
	cfg   RunnerConfig
}

// NewRunner creates a runner over the given store and collaborators.
func NewRunner(store *Store, cfg RunnerConfig) *Runner {
	if cfg.Engine == nil {
		cfg.Engine = rules.DefaultEngine()
	}
	if cfg.Fusion == nil {
		cfg.Fusion = risk.NewFusion()
	}
	return &Runner{store: store, cfg: cfg}
}

// Launch starts the job's background run and returns immediately. Observers
// attach through the job's dispatcher; execution is decoupled from any one
// observer connection.
func (r *Runner) Launch(j *Job) {
	go func() {
		if err := r.Run(context.Background(), j); err != nil {
			log.Printf("[job %s] failed: %v", j.ID(), err)
		}
	}()
}

// Run executes the job to a terminal state. The returned error is non-nil
// only for job-fatal failures (the job is marked FAILED). Cancellation is
// not an error.
func (r *Runner) Run(ctx context.Context, j *Job) error {
	id := j.ID()
	d := j.Dispatcher()
	defer d.Close()

	snap, err := r.store.Get(id)
	if err != nil {
		return err
	}
	params := snap.Params
	startedAt := time.Now().UTC()

	r.store.Transition(id, StatusCollecting)
	d.Publish(EventStart, map[string]any{
		"job_id":         id.String(),
		"sources":        params.Sources,
		"limit":          params.Limit,
		"oracle_enabled": params.UseOracle && len(r.cfg.Oracles) > 0,
	})
	d.Publish(EventPhase, map[string]any{"phase": string(StatusCollecting)})

	items, resolved := r.collectAll(ctx, id, params, d)
	if r.store.IsCancelled(id) {
		r.finish(id, d, nil, startedAt)
		return nil
	}
	if resolved == 0 {
		err := fmt.Errorf("no usable collection source among %v", params.Sources)
		r.store.Fail(id, err)
		d.Publish(EventError, map[string]any{"scope": "job", "error": err.Error()})
		r.recordJob(id, startedAt)
		return err
	}

	r.store.Transition(id, StatusAnalyzing)
	d.Publish(EventPhase, map[string]any{
		"phase":     string(StatusAnalyzing),
		"collected": len(items),
	})

	results := r.analyze(ctx, id, params, items, d)
	r.finish(id, d, results, startedAt)
	return nil
}

// collectAll fetches from every requested source. A failing source is
// reported and skipped; it never aborts the other sources. Returns the items
// and how many source ids resolved to a known collaborator.
func (r *Runner) collectAll(ctx context.Context, id uuid.UUID, params Params, d *Dispatcher) ([]types.ContentItem, int) {
	filter := collect.Filter{Keywords: params.Keywords, TimeWindow: params.TimeWindow}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var items []types.ContentItem
	resolved := 0
	for _, sourceID := range params.Sources {
		// Cancellation checkpoint before each source.
		if r.store.IsCancelled(id) {
			break
		}
		src, ok := r.cfg.Resolve(sourceID)
		if !ok {
			d.Publish(EventError, map[string]any{
				"scope": "source", "source": sourceID, "error": "unknown source",
			})
			continue
		}
		resolved++

		fetched, err := src.Fetch(ctx, filter, limit)
		if err != nil {
			log.Printf("[job %s] source %s failed: %v", id, sourceID, err)
			d.Publish(EventError, map[string]any{
				"scope": "source", "source": sourceID, "error": err.Error(),
			})
			continue
		}
		items = append(items, fetched...)
		d.Publish(EventInfo, map[string]any{
			"message": fmt.Sprintf("collected %d items from %s", len(fetched), sourceID),
			"source":  sourceID,
			"count":   len(fetched),
		})
	}
	return items, resolved
}

// analyze scores every item, runs the enrichment gate, and appends each
// completed assessment to the job log in completion order.
func (r *Runner) analyze(ctx context.Context, id uuid.UUID, params Params, items []types.ContentItem, d *Dispatcher) []types.ItemResult {
	scored := make([]enrich.ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, enrich.ScoredItem{
			Item:   item,
			Signal: r.cfg.Engine.Score(item.Text),
		})
	}

	gate := enrich.NewGate(r.cfg.Fusion, r.cfg.Oracles, enrich.Options{
		Concurrency:    r.cfg.Concurrency,
		PrefilterFloor: r.cfg.PrefilterFloor,
		OracleEnabled:  params.UseOracle,
		Force:          params.ForceOracle,
	})

	cancelled := func() bool { return r.store.IsCancelled(id) }
	var results []types.ItemResult
	for res := range gate.Run(ctx, scored, cancelled) {
		if !r.store.Append(id, res) {
			// Late result after a terminal transition; discard.
			continue
		}
		results = append(results, res)
		d.Publish(EventItem, res)

		r.cfg.Metrics.Increment("items_assessed", 1)
		r.cfg.Metrics.Increment("level_"+strings.ToLower(string(res.Assessment.FinalLevel)), 1)
		if n := len(res.Assessment.Contributions); n > 0 {
			r.cfg.Metrics.Increment("oracle_consults", int64(n))
		}
	}
	return results
}

// finish records the aggregate summary and publishes the terminal event.
func (r *Runner) finish(id uuid.UUID, d *Dispatcher, results []types.ItemResult, startedAt time.Time) {
	summary := buildSummary(results, startedAt)
	r.store.Complete(id, summary)
	d.Publish(EventComplete, summary)
	r.recordJob(id, startedAt)
}

// recordJob counts the job under its terminal status and records its duration.
func (r *Runner) recordJob(id uuid.UUID, startedAt time.Time) {
	if snap, err := r.store.Get(id); err == nil {
		r.cfg.Metrics.Increment("jobs_"+strings.ToLower(string(snap.Status)), 1)
	}
	r.cfg.Metrics.Observe("job_duration_seconds", time.Since(startedAt).Seconds())
}

func buildSummary(results []types.ItemResult, startedAt time.Time) Summary {
	summary := Summary{
		TotalItems:  len(results),
		ByLevel:     make(map[types.RiskLevel]int),
		BySource:    make(map[string]int),
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}
	for _, res := range results {
		summary.ByLevel[res.Assessment.FinalLevel]++
		summary.BySource[res.Item.Source]++
		if res.Assessment.Provenance == types.ProvenanceHybrid {
			summary.OracleUsed++
		}
	}
	if summary.TotalItems > 0 {
		high := summary.ByLevel[types.LevelHigh] + summary.ByLevel[types.LevelCritical]
		summary.HighRiskPct = float64(high) / float64(summary.TotalItems) * 100
	}
	return summary
}
