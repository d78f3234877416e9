package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// opinionSchema validates the structured payload an oracle is asked to
// return. Anything that fails validation falls back to the neutral opinion.
const opinionSchema = `{
  "type": "object",
  "properties": {
    "final_label": {"type": "string"},
    "risk_adjustment": {"type": "number", "minimum": -1, "maximum": 1},
    "reasons": {"type": "array", "items": {"type": "string"}},
    "evidence_spans": {"type": "array", "items": {"type": "string"}},
    "misclassification_risk": {"type": "string"}
  },
  "required": ["final_label", "risk_adjustment"]
}`

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// rawOpinion is the wire shape of an oracle's structured payload.
type rawOpinion struct {
	FinalLabel            string   `json:"final_label"`
	RiskAdjustment        float64  `json:"risk_adjustment"`
	Reasons               []string `json:"reasons"`
	EvidenceSpans         []string `json:"evidence_spans"`
	MisclassificationRisk string   `json:"misclassification_risk"`
}

// DecodeOpinion turns raw oracle output into a validated OracleOpinion. The
// decode is deliberately lenient: markdown fences are stripped, a JSON object
// is extracted from surrounding prose if needed, and the payload is checked
// against the opinion schema. If nothing structured can be recovered the
// neutral opinion is returned, so callers always get a usable value.
// Evidence spans that are not verbatim substrings of sourceText are dropped.
func DecodeOpinion(raw, sourceText string) types.OracleOpinion {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return types.NeutralOpinion()
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(opinionSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil || !result.Valid() {
		return types.NeutralOpinion()
	}

	var ro rawOpinion
	if err := json.Unmarshal([]byte(payload), &ro); err != nil {
		return types.NeutralOpinion()
	}

	op := types.OracleOpinion{
		Adjustment:            ro.RiskAdjustment,
		Label:                 types.ParseLevel(ro.FinalLabel),
		Reasons:               ro.Reasons,
		EvidenceSpans:         verbatimSpans(ro.EvidenceSpans, sourceText),
		MisclassificationRisk: ro.MisclassificationRisk,
	}
	if op.Reasons == nil {
		op.Reasons = []string{}
	}
	if op.MisclassificationRisk == "" {
		op.MisclassificationRisk = "MEDIUM"
	}
	return op
}

// extractJSONPayload finds a JSON object in raw model output. Returns ""
// when no valid JSON object can be recovered.
func extractJSONPayload(raw string) string {
	cleaned := CleanJSONBlock(raw)
	if json.Valid([]byte(cleaned)) && strings.HasPrefix(strings.TrimSpace(cleaned), "{") {
		return cleaned
	}
	if match := jsonObjectRe.FindString(cleaned); match != "" && json.Valid([]byte(match)) {
		return match
	}
	return ""
}

// verbatimSpans filters spans down to those that appear verbatim in the
// source text. Oracles are untrusted and sometimes paraphrase evidence.
func verbatimSpans(spans []string, sourceText string) []string {
	kept := []string{}
	for _, span := range spans {
		if span != "" && strings.Contains(sourceText, span) {
			kept = append(kept, span)
		}
	}
	return kept
}

// CleanJSONBlock removes markdown code block wrappers from model responses.
// Models often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
