package types

// RiskLevel is the categorical risk classification of a piece of content.
type RiskLevel string

// Risk level constants, ordered from least to most severe.
const (
	LevelLow      RiskLevel = "LOW"
	LevelMedium   RiskLevel = "MEDIUM"
	LevelHigh     RiskLevel = "HIGH"
	LevelCritical RiskLevel = "CRITICAL"
)

// Score thresholds for the level bands. CRITICAL >= 0.9, HIGH >= 0.7,
// MEDIUM >= 0.4, LOW otherwise.
const (
	CriticalThreshold = 0.9
	HighThreshold     = 0.7
	MediumThreshold   = 0.4
)

// LevelFromScore maps a numeric risk score onto a RiskLevel.
func LevelFromScore(score float64) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return LevelCritical
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ParseLevel returns the RiskLevel for a label string, defaulting to MEDIUM
// for anything unrecognized. Oracle responses are untrusted input, so an
// unknown label must never fail the pipeline.
func ParseLevel(label string) RiskLevel {
	switch RiskLevel(label) {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return RiskLevel(label)
	default:
		return LevelMedium
	}
}
