// Package enrich fans fusion work out over many items while bounding how
// many may be inside an oracle call at once. The oracle backend serializes
// resource-bound inference and degrades sharply under concurrent load, so
// the bound is a semaphore around the oracle stage only; rule-based work is
// cheap and unbounded.
package enrich

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/risk"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// Defaults for the gate.
const (
	DefaultConcurrency    = 3
	DefaultPrefilterFloor = 0.25
)

// ItemFilter lets an oracle opt out of items it cannot judge (a vision
// oracle skips text-only items). Oracles without this method see every item.
type ItemFilter interface {
	Wants(item types.ContentItem) bool
}

// Options configures a Gate.
type Options struct {
	// Concurrency bounds simultaneous oracle calls. Zero means the default.
	Concurrency int64
	// PrefilterFloor skips oracle consultation for items scoring below it,
	// regardless of the triage band. Bounds oracle volume on large batches.
	PrefilterFloor float64
	// OracleEnabled gates all oracle consultation.
	OracleEnabled bool
	// Force consults the oracle even outside the triage band.
	Force bool
}

// ScoredItem pairs an item with its deterministic rule signal.
type ScoredItem struct {
	Item   types.ContentItem
	Signal types.RuleSignal
}

// Gate schedules enrichment for a batch of scored items.
type Gate struct {
	fusion  *risk.Fusion
	oracles []oracle.Oracle
	opts    Options
}

// NewGate creates a gate over the given fusion logic and oracles. The oracle
// slice may be empty, in which case every item fuses rules-only.
func NewGate(fusion *risk.Fusion, oracles []oracle.Oracle, opts Options) *Gate {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.PrefilterFloor == 0 {
		opts.PrefilterFloor = DefaultPrefilterFloor
	}
	return &Gate{fusion: fusion, oracles: oracles, opts: opts}
}

// Run launches one task per item and returns a channel of results in
// completion order: a slow item never blocks faster ones. The cancelled
// callback is checked before each item's oracle stage; results belonging to
// a cancelled run are discarded on arrival, and in-flight oracle calls are
// never forcibly aborted. The channel closes once all tasks finish.
func (g *Gate) Run(ctx context.Context, items []ScoredItem, cancelled func() bool) <-chan types.ItemResult {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	out := make(chan types.ItemResult)
	sem := semaphore.NewWeighted(g.opts.Concurrency)

	var wg sync.WaitGroup
	for _, si := range items {
		wg.Add(1)
		go func(si ScoredItem) {
			defer wg.Done()
			g.enrichOne(ctx, sem, si, cancelled, out)
		}(si)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (g *Gate) enrichOne(ctx context.Context, sem *semaphore.Weighted, si ScoredItem, cancelled func() bool, out chan<- types.ItemResult) {
	// Cooperative cancellation checkpoint: skip enrichment entirely once the
	// owning run is cancelled.
	if cancelled() {
		return
	}

	var opinions []risk.SourcedOpinion
	if g.shouldConsult(si.Signal.Score) {
		opinions = g.consult(ctx, sem, si)
	}

	// A result arriving after cancellation is discarded, not delivered.
	if cancelled() {
		return
	}

	result := types.ItemResult{
		Item:       si.Item,
		Assessment: g.fusion.Fuse(si.Signal, opinions),
	}
	select {
	case out <- result:
	case <-ctx.Done():
	}
}

func (g *Gate) shouldConsult(ruleScore float64) bool {
	if len(g.oracles) == 0 {
		return false
	}
	if ruleScore < g.opts.PrefilterFloor {
		return false
	}
	return g.fusion.Triage(ruleScore, g.opts.OracleEnabled, g.opts.Force)
}

// consult holds a semaphore slot across all of one item's oracle calls. An
// oracle failure logs and omits that opinion; it never fails the item.
func (g *Gate) consult(ctx context.Context, sem *semaphore.Weighted, si ScoredItem) []risk.SourcedOpinion {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer sem.Release(1)

	var opinions []risk.SourcedOpinion
	for _, o := range g.oracles {
		if f, ok := o.(ItemFilter); ok && !f.Wants(si.Item) {
			continue
		}
		opinion, err := o.Classify(ctx, si.Item, si.Signal)
		if err != nil {
			log.Printf("[enrich] oracle %s failed for item %s: %v", o.Name(), si.Item.ID, err)
			continue
		}
		opinions = append(opinions, risk.SourcedOpinion{Source: o.Name(), Opinion: opinion})
	}
	return opinions
}
