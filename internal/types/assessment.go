package types

// Provenance values for a FusedAssessment.
const (
	ProvenanceRules  = "rules"
	ProvenanceHybrid = "hybrid"
)

// Contribution records one oracle's applied adjustment, for attribution.
type Contribution struct {
	Source  string  `json:"source"`
	Applied float64 `json:"adjustment_applied"`
}

// FusedAssessment is the final risk verdict for one item: the rule-based base
// score plus zero or more bounded oracle adjustments. Appended once to a job's
// item log and immutable thereafter.
type FusedAssessment struct {
	BaseScore     float64         `json:"base_score"`
	Contributions []Contribution  `json:"contributions,omitempty"`
	FinalScore    float64         `json:"final_score"`
	FinalLevel    RiskLevel       `json:"final_level"`
	Provenance    string          `json:"provenance"`
	Signal        RuleSignal      `json:"signal"`
	Opinions      []OracleOpinion `json:"opinions,omitempty"`
}

// ItemResult joins a collected item with its completed assessment. This is
// the unit that flows through the job's item log and event stream.
type ItemResult struct {
	Item       ContentItem     `json:"item"`
	Assessment FusedAssessment `json:"assessment"`
}
