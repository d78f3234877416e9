package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, LevelLow},
		{0.39, LevelLow},
		{0.4, LevelMedium},
		{0.69, LevelMedium},
		{0.7, LevelHigh},
		{0.89, LevelHigh},
		{0.9, LevelCritical},
		{1.0, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromScore(tt.score), "score %v", tt.score)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelLow, ParseLevel("LOW"))
	assert.Equal(t, LevelCritical, ParseLevel("CRITICAL"))
	assert.Equal(t, LevelMedium, ParseLevel("severe"), "unknown labels default to MEDIUM")
	assert.Equal(t, LevelMedium, ParseLevel(""))
	assert.Equal(t, LevelMedium, ParseLevel("high"), "labels are case sensitive")
}

func TestNeutralOpinion(t *testing.T) {
	op := NeutralOpinion()

	assert.Equal(t, 0.0, op.Adjustment)
	assert.Equal(t, LevelMedium, op.Label)
	assert.Equal(t, []string{"fallback-parser"}, op.Reasons)
	assert.Empty(t, op.EvidenceSpans)
}

func TestContentItem_HasImage(t *testing.T) {
	assert.False(t, ContentItem{Text: "no image"}.HasImage())
	assert.True(t, ContentItem{ImageURL: "https://example.com/a.jpg"}.HasImage())
}
