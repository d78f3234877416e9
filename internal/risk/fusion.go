// Package risk combines the deterministic rule signal with bounded external
// oracle adjustments into a single assessment.
package risk

import (
	"github.com/jonathan/risk-sentinel/internal/types"
)

// Defaults for fusion behavior. The triage band bounds are inclusive.
const (
	DefaultMaxShift   = 0.2
	DefaultTriageLow  = 0.35
	DefaultTriageHigh = 0.75
)

// SourcedOpinion pairs a successful oracle opinion with the name of the
// oracle that produced it, for attribution in the fused result.
type SourcedOpinion struct {
	Source  string
	Opinion types.OracleOpinion
}

// Fusion holds the tunables for score combination and oracle triage.
type Fusion struct {
	MaxShift   float64
	TriageLow  float64
	TriageHigh float64
}

// NewFusion returns a Fusion with default tunables.
func NewFusion() *Fusion {
	return &Fusion{
		MaxShift:   DefaultMaxShift,
		TriageLow:  DefaultTriageLow,
		TriageHigh: DefaultTriageHigh,
	}
}

// Triage reports whether an oracle is worth consulting for the given rule
// score. Outside the band the deterministic result is already trusted in
// either direction, so the oracle cost is skipped unless forced.
func (f *Fusion) Triage(ruleScore float64, enabled, force bool) bool {
	if !enabled {
		return false
	}
	if force {
		return true
	}
	return ruleScore >= f.TriageLow && ruleScore <= f.TriageHigh
}

// Combine applies one bounded adjustment to a score: the adjustment is
// clamped to [-1,1], scaled by MaxShift, added, and the result clamped to
// [0,1]. Returns the new score and its level.
func (f *Fusion) Combine(score, adjustment float64) (float64, types.RiskLevel) {
	combined := clamp01(score + clampAdjustment(adjustment)*f.MaxShift)
	return combined, types.LevelFromScore(combined)
}

// Fuse folds every successful oracle opinion into the rule signal's score.
// Failed oracle calls never reach this function; fusion only sees validated
// opinions. With no opinions the result is the rule score exactly, with
// provenance "rules".
func (f *Fusion) Fuse(sig types.RuleSignal, opinions []SourcedOpinion) types.FusedAssessment {
	fused := types.FusedAssessment{
		BaseScore:  sig.Score,
		FinalScore: sig.Score,
		Provenance: types.ProvenanceRules,
		Signal:     sig,
	}

	for _, so := range opinions {
		applied := clampAdjustment(so.Opinion.Adjustment) * f.MaxShift
		fused.FinalScore = clamp01(fused.FinalScore + applied)
		fused.Contributions = append(fused.Contributions, types.Contribution{
			Source:  so.Source,
			Applied: applied,
		})
		fused.Opinions = append(fused.Opinions, so.Opinion)
	}
	if len(opinions) > 0 {
		fused.Provenance = types.ProvenanceHybrid
	}
	fused.FinalLevel = types.LevelFromScore(fused.FinalScore)
	return fused
}

func clampAdjustment(a float64) float64 {
	if a < -1 {
		return -1
	}
	if a > 1 {
		return 1
	}
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
