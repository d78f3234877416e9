package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "need to buy a glock cash only", Normalize("Need to buy a glock, cash only!"))
	assert.Equal(t, "hello world", Normalize("  Hello   WORLD  "))
	assert.Equal(t, "", Normalize(""))
}

func TestScore_BenignText(t *testing.T) {
	e := DefaultEngine()

	sig := e.Score("Beautiful sunset at the lake this weekend, highly recommend the north trail")

	assert.Equal(t, 0.0, sig.Score)
	assert.Empty(t, sig.Flags)
	assert.Empty(t, sig.KeywordGroups)
	assert.Empty(t, sig.MatchedPatterns)
	assert.Equal(t, 0.9, sig.Confidence)
}

func TestScore_NamedWeaponWithTransaction(t *testing.T) {
	e := DefaultEngine()

	sig := e.Score("Need to buy a glock, cash only")

	// Named weapon + transaction verbs + illegal terms max out the score.
	assert.GreaterOrEqual(t, sig.Score, 0.8)
	assert.Contains(t, sig.Flags, "CRITICAL: weapon + transaction intent detected")
	assert.NotEmpty(t, sig.MatchedPatterns)
}

func TestScore_WeaponKeywordFloor(t *testing.T) {
	e := DefaultEngine()

	// A single weapon keyword with no other signal still floors at 0.7.
	sig := e.Score("I saw a rifle at the museum exhibit")

	assert.GreaterOrEqual(t, sig.Score, 0.7)
	assert.NotEmpty(t, sig.KeywordGroups)
}

func TestScore_NamedWeaponFloor(t *testing.T) {
	e := DefaultEngine()

	sig := e.Score("the glock display case")

	assert.GreaterOrEqual(t, sig.Score, 0.8)
	assert.Contains(t, sig.Flags, "HIGH RISK: direct weapon reference detected")
}

func TestScore_NonWeaponKeywordNoFloor(t *testing.T) {
	e := DefaultEngine()

	// Illegal-terms keywords add increments but never trigger weapon floors.
	sig := e.Score("the documentary covered smuggling routes")

	assert.InDelta(t, 0.4, sig.Score, 0.001)
}

func TestScore_ViolenceComboBoost(t *testing.T) {
	e := DefaultEngine()

	sig := e.Score("going to shoot up the place with my gun")

	assert.Contains(t, sig.Flags, "CRITICAL: weapon + violence intent detected")
	assert.GreaterOrEqual(t, sig.Score, 0.7)
}

func TestScore_AlwaysInUnitRange(t *testing.T) {
	e := DefaultEngine()

	texts := []string{
		"",
		"buy sell trade guns rifles pistols glock ak47 bomb kill murder cash only no questions untraceable",
		"nothing remotely risky here",
		"Need to buy ar15 fast, no paperwork, will pay extra for no id",
	}
	for _, text := range texts {
		sig := e.Score(text)
		assert.GreaterOrEqual(t, sig.Score, 0.0, "text: %s", text)
		assert.LessOrEqual(t, sig.Score, 1.0, "text: %s", text)
	}
}

func TestScore_Deterministic(t *testing.T) {
	e := DefaultEngine()
	text := "WTS: glock 19, cash only, no questions, meetup parking lot tonight"

	first := e.Score(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Score(text))
	}
}

func TestScore_PunctuationInsensitive(t *testing.T) {
	e := DefaultEngine()

	plain := e.Score("need to buy a glock cash only")
	punctuated := e.Score("Need to buy a GLOCK!!! (cash only...)")

	assert.Equal(t, plain.Score, punctuated.Score)
}

func TestNewEngine_InvalidPattern(t *testing.T) {
	tables := DefaultTables()
	tables.HighRiskPatterns = append(tables.HighRiskPatterns, `[unclosed`)

	_, err := NewEngine(tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid high-risk pattern")
}

func TestNewEngine_EmptyTables(t *testing.T) {
	e, err := NewEngine(Tables{})
	require.NoError(t, err)

	sig := e.Score("anything at all")
	assert.Equal(t, 0.0, sig.Score)
}
