// Package rules implements the deterministic lexical risk scorer. Scoring is
// a pure function of the input text: additive increments for keyword,
// pattern, and combination matches, followed by floor overrides for weapon
// content, clamped to [0,1].
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Scoring increments and floors. The additive-then-floor policy decides
// whether downstream triage ever consults an oracle, so these values are a
// load-bearing contract covered by tests.
const (
	keywordIncrement       = 0.4
	patternIncrement       = 0.5
	mediumPatternIncrement = 0.3
	transactionComboBoost  = 0.3
	violenceComboBoost     = 0.4
	weaponKeywordFloor     = 0.7
	namedWeaponFloor       = 0.8
	baseConfidence         = 0.9
)

// Engine scores text against compiled rule tables. Safe for concurrent use.
type Engine struct {
	tables         Tables
	highPatterns   []*regexp.Regexp
	mediumPatterns []*regexp.Regexp
	weaponCats     map[string]bool
}

// NewEngine compiles the given tables into an Engine.
func NewEngine(tables Tables) (*Engine, error) {
	e := &Engine{
		tables:     tables,
		weaponCats: make(map[string]bool, len(tables.WeaponCategories)),
	}
	for _, cat := range tables.WeaponCategories {
		e.weaponCats[cat] = true
	}
	for _, p := range tables.HighRiskPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid high-risk pattern %q: %w", p, err)
		}
		e.highPatterns = append(e.highPatterns, re)
	}
	for _, p := range tables.MediumRiskPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid medium-risk pattern %q: %w", p, err)
		}
		e.mediumPatterns = append(e.mediumPatterns, re)
	}
	return e, nil
}

// DefaultEngine returns an Engine over the built-in tables.
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultTables())
	if err != nil {
		// The default tables are compiled in tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return e
}

// Normalize lowercases text, collapses runs of whitespace into single spaces,
// and strips punctuation while preserving spaces.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	collapsed := strings.Join(strings.Fields(lowered), " ")
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, collapsed)
}

// Score analyzes text and returns its deterministic rule signal.
func (e *Engine) Score(text string) types.RuleSignal {
	cleaned := Normalize(text)

	sig := types.RuleSignal{
		Confidence:      baseConfidence,
		Flags:           []string{},
		KeywordGroups:   []string{},
		MatchedPatterns: []string{},
	}
	score := 0.0

	// Iterate categories in stable order so flags are deterministic.
	catNames := make([]string, 0, len(e.tables.Categories))
	for name := range e.tables.Categories {
		catNames = append(catNames, name)
	}
	sort.Strings(catNames)

	hasWeaponKeyword := false
	hasViolenceKeyword := false
	for _, cat := range catNames {
		var found []string
		for _, kw := range e.tables.Categories[cat] {
			if strings.Contains(cleaned, kw) {
				found = append(found, kw)
				score += keywordIncrement
				sig.Flags = append(sig.Flags, fmt.Sprintf("HIGH RISK: detected %s keyword %q", cat, kw))
			}
		}
		if len(found) > 0 {
			sig.KeywordGroups = append(sig.KeywordGroups, fmt.Sprintf("%s: %s", cat, strings.Join(found, ", ")))
			if e.weaponCats[cat] {
				hasWeaponKeyword = true
			}
			if cat == e.tables.ViolenceCategory {
				hasViolenceKeyword = true
			}
		}
	}

	for _, re := range e.highPatterns {
		for _, m := range re.FindAllString(cleaned, -1) {
			sig.MatchedPatterns = append(sig.MatchedPatterns, m)
			score += patternIncrement
			sig.Flags = append(sig.Flags, fmt.Sprintf("HIGH RISK: suspicious intent pattern %q", m))
		}
	}
	for _, re := range e.mediumPatterns {
		for _, m := range re.FindAllString(cleaned, -1) {
			sig.MatchedPatterns = append(sig.MatchedPatterns, m)
			score += mediumPatternIncrement
			sig.Flags = append(sig.Flags, fmt.Sprintf("MEDIUM RISK: pattern %q", m))
		}
	}

	hasTransactionIntent := false
	for _, verb := range e.tables.TransactionVerbs {
		if strings.Contains(cleaned, verb) {
			hasTransactionIntent = true
			break
		}
	}

	if hasWeaponKeyword && hasTransactionIntent {
		score += transactionComboBoost
		sig.Flags = append(sig.Flags, "CRITICAL: weapon + transaction intent detected")
	}
	if hasWeaponKeyword && hasViolenceKeyword {
		score += violenceComboBoost
		sig.Flags = append(sig.Flags, "CRITICAL: weapon + violence intent detected")
	}

	if score > 1.0 {
		score = 1.0
	}

	// Floor overrides apply after the additive sum.
	if hasWeaponKeyword && score < weaponKeywordFloor {
		score = weaponKeywordFloor
	}
	for _, named := range e.tables.NamedWeapons {
		if strings.Contains(cleaned, named) {
			if score < namedWeaponFloor {
				score = namedWeaponFloor
			}
			sig.Flags = append(sig.Flags, "HIGH RISK: direct weapon reference detected")
			break
		}
	}

	if score < 0 {
		score = 0
	}
	sig.Score = score
	return sig
}
