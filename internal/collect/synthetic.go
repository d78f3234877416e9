package collect

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Synthetic item templates spanning the risk spectrum, used for demos and
// pipeline exercises without touching live platforms.
var syntheticTemplates = []string{
	"Beautiful sunset at the lake this weekend, highly recommend the north trail",
	"Anyone have recommendations for a good hiking backpack under $200?",
	"Selling my old laptop, works fine, minor scratches, pickup downtown",
	"Need tactical gear for hiking next month, any suggestions?",
	"Looking for protection for my home, what do people recommend?",
	"Interested in sport shooting, where do beginners start legally?",
	"WTS: glock 19, cash only, no questions, meetup parking lot tonight",
	"Need to buy ar15 fast, no paperwork, will pay extra for no id",
	"Who has a connect for untraceable heat? serious buyers only",
}

// SyntheticSource produces templated items for testing the full pipeline.
// A fixed seed makes runs reproducible.
type SyntheticSource struct {
	id  string
	rng *rand.Rand
}

// NewSyntheticSource creates a synthetic source with the given seed.
func NewSyntheticSource(id string, seed int64) *SyntheticSource {
	return &SyntheticSource{id: id, rng: rand.New(rand.NewSource(seed))}
}

// ID identifies the source.
func (s *SyntheticSource) ID() string { return s.id }

// Fetch generates up to limit synthetic items.
func (s *SyntheticSource) Fetch(_ context.Context, filter Filter, limit int) ([]types.ContentItem, error) {
	now := time.Now().UTC()
	items := make([]types.ContentItem, 0, limit)
	for i := 0; len(items) < limit && i < limit*4; i++ {
		text := syntheticTemplates[s.rng.Intn(len(syntheticTemplates))]
		if !matchesKeywords(text, filter.Keywords) {
			continue
		}
		items = append(items, types.ContentItem{
			ID:          fmt.Sprintf("%s:%d", s.id, i),
			Text:        text,
			Source:      s.id,
			CollectedAt: now,
		})
	}
	return items, nil
}
