package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/risk-sentinel/internal/types"
)

func TestTriage_BandIsInclusive(t *testing.T) {
	f := NewFusion()

	assert.True(t, f.Triage(0.35, true, false), "lower bound is inside the band")
	assert.True(t, f.Triage(0.75, true, false), "upper bound is inside the band")
	assert.True(t, f.Triage(0.5, true, false))
	assert.False(t, f.Triage(0.34, true, false))
	assert.False(t, f.Triage(0.76, true, false))
}

func TestTriage_DisabledAndForced(t *testing.T) {
	f := NewFusion()

	assert.False(t, f.Triage(0.5, false, false), "disabled wins over the band")
	assert.False(t, f.Triage(0.5, false, true), "force cannot override disabled")
	assert.True(t, f.Triage(0.95, true, true), "force consults outside the band")
	assert.True(t, f.Triage(0.0, true, true))
}

func TestCombine_BoundsShift(t *testing.T) {
	f := NewFusion()

	// A full +1 adjustment moves the score by at most MaxShift.
	score, level := f.Combine(0.5, 1.0)
	assert.InDelta(t, 0.7, score, 0.001)
	assert.Equal(t, types.LevelHigh, level)

	// Oversized adjustments clamp to the same bound.
	oversized, _ := f.Combine(0.5, 5.0)
	assert.InDelta(t, 0.7, oversized, 0.001)

	negative, _ := f.Combine(0.5, -5.0)
	assert.InDelta(t, 0.3, negative, 0.001)
}

func TestCombine_ClampsToUnitRange(t *testing.T) {
	f := NewFusion()

	high, _ := f.Combine(0.95, 1.0)
	assert.Equal(t, 1.0, high)

	low, _ := f.Combine(0.05, -1.0)
	assert.Equal(t, 0.0, low)
}

func TestFuse_NoOpinionsIsRulesProvenance(t *testing.T) {
	f := NewFusion()
	sig := types.RuleSignal{Score: 0.6, Confidence: 0.9}

	fused := f.Fuse(sig, nil)

	assert.Equal(t, 0.6, fused.FinalScore, "rule score passes through exactly")
	assert.Equal(t, 0.6, fused.BaseScore)
	assert.Equal(t, types.ProvenanceRules, fused.Provenance)
	assert.Empty(t, fused.Contributions)
	assert.Equal(t, types.LevelMedium, fused.FinalLevel)
}

func TestFuse_ZeroAdjustmentIsNoOpButHybrid(t *testing.T) {
	f := NewFusion()
	sig := types.RuleSignal{Score: 0.5}

	fused := f.Fuse(sig, []SourcedOpinion{
		{Source: "gemini-text", Opinion: types.OracleOpinion{Adjustment: 0, Label: types.LevelMedium}},
	})

	assert.Equal(t, 0.5, fused.FinalScore)
	assert.Equal(t, types.ProvenanceHybrid, fused.Provenance, "a consulted oracle marks the result hybrid even at zero shift")
	assert.Len(t, fused.Contributions, 1)
	assert.Equal(t, 0.0, fused.Contributions[0].Applied)
}

func TestFuse_MultipleOpinionsFoldInOrder(t *testing.T) {
	f := NewFusion()
	sig := types.RuleSignal{Score: 0.4}

	fused := f.Fuse(sig, []SourcedOpinion{
		{Source: "gemini-text", Opinion: types.OracleOpinion{Adjustment: 1.0}},
		{Source: "gemini-vision", Opinion: types.OracleOpinion{Adjustment: -0.5}},
	})

	// 0.4 + 0.2 - 0.1
	assert.InDelta(t, 0.5, fused.FinalScore, 0.001)
	assert.Equal(t, 0.4, fused.BaseScore)
	assert.Len(t, fused.Contributions, 2)
	assert.Equal(t, "gemini-text", fused.Contributions[0].Source)
	assert.InDelta(t, 0.2, fused.Contributions[0].Applied, 0.001)
	assert.InDelta(t, -0.1, fused.Contributions[1].Applied, 0.001)
}

func TestFuse_FinalScoreStaysInUnitRange(t *testing.T) {
	f := NewFusion()

	fused := f.Fuse(types.RuleSignal{Score: 0.95}, []SourcedOpinion{
		{Source: "a", Opinion: types.OracleOpinion{Adjustment: 1.0}},
		{Source: "b", Opinion: types.OracleOpinion{Adjustment: 1.0}},
	})
	assert.Equal(t, 1.0, fused.FinalScore)
	assert.Equal(t, types.LevelCritical, fused.FinalLevel)

	floor := f.Fuse(types.RuleSignal{Score: 0.1}, []SourcedOpinion{
		{Source: "a", Opinion: types.OracleOpinion{Adjustment: -1.0}},
	})
	assert.Equal(t, 0.0, floor.FinalScore)
}
