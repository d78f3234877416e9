package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// maxPromptText bounds how much item text is sent to the oracle.
const maxPromptText = 8000

// buildClassificationPrompt constructs the strict-JSON classification prompt
// for a text item, embedding the rule engine's findings so the oracle reviews
// the deterministic result rather than starting cold.
func buildClassificationPrompt(item types.ContentItem, sig types.RuleSignal) string {
	flags, _ := json.Marshal(sig.Flags)
	keywords, _ := json.Marshal(sig.KeywordGroups)
	patterns, _ := json.Marshal(sig.MatchedPatterns)

	var sb strings.Builder
	sb.WriteString("You are a precise risk classifier reviewing content flagged by a rule-based scanner.\n")
	sb.WriteString("Distinguish legal activity (licensed sales, hunting, sport shooting, collecting, news discussion) ")
	sb.WriteString("from potentially illegal activity (unlicensed sales, untraceable weapons, sales evading checks, trafficking).\n\n")
	fmt.Fprintf(&sb, "CONTENT:\n%s\n\n", truncate(item.Text, maxPromptText))
	fmt.Fprintf(&sb, "RULE FINDINGS:\nscore: %.3f\nflags: %s\nkeywords: %s\npatterns: %s\n\n",
		sig.Score, flags, keywords, patterns)
	sb.WriteString("Respond ONLY with a JSON object (no markdown, no explanation):\n")
	sb.WriteString(`{
  "final_label": "LOW/MEDIUM/HIGH/CRITICAL",
  "risk_adjustment": -1.0 to 1.0,
  "reasons": ["short reasons for the adjustment"],
  "evidence_spans": ["verbatim substrings of the content supporting the assessment"],
  "misclassification_risk": "LOW/MEDIUM/HIGH"
}`)
	return sb.String()
}

// buildVisionPrompt constructs the weapon-detection prompt for an image item.
func buildVisionPrompt() string {
	return `You are a weapons detection expert. Analyze this image carefully for weapons:
handguns, rifles, shotguns, knives, explosives, or other dangerous objects.
Avoid common false positives: toy guns, camera equipment, tools, umbrellas, game controllers.

Respond ONLY with a JSON object (no markdown, no explanation):
{
  "final_label": "LOW/MEDIUM/HIGH/CRITICAL",
  "risk_adjustment": -1.0 to 1.0,
  "reasons": ["what is visible and why it matters"],
  "evidence_spans": [],
  "misclassification_risk": "LOW/MEDIUM/HIGH"
}`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
