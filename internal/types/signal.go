package types

// RuleSignal is the deterministic output of the lexical rule engine for one
// piece of text. It is a pure function of the text: the same input always
// produces the same signal.
type RuleSignal struct {
	Score           float64  `json:"score"`
	Confidence      float64  `json:"confidence"`
	Flags           []string `json:"flags"`
	KeywordGroups   []string `json:"keyword_groups"`
	MatchedPatterns []string `json:"matched_patterns"`
}

// OracleOpinion is one external classifier's take on an item. Opinions are
// untrusted: the adjustment is never applied unclamped, and evidence spans are
// only kept when they are verbatim substrings of the source text.
type OracleOpinion struct {
	Adjustment            float64   `json:"risk_adjustment"`
	Label                 RiskLevel `json:"final_label"`
	Reasons               []string  `json:"reasons"`
	EvidenceSpans         []string  `json:"evidence_spans"`
	MisclassificationRisk string    `json:"misclassification_risk"`
}

// NeutralOpinion is the fallback opinion used when an oracle response cannot
// be decoded into anything structured. It shifts nothing.
func NeutralOpinion() OracleOpinion {
	return OracleOpinion{
		Adjustment:            0,
		Label:                 LevelMedium,
		Reasons:               []string{"fallback-parser"},
		EvidenceSpans:         []string{},
		MisclassificationRisk: "MEDIUM",
	}
}
