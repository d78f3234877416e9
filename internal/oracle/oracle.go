// Package oracle wraps external classification services behind one uniform
// capability. Adapters normalize every outcome into either a validated
// OracleOpinion or a typed failure; callers never see raw model output.
package oracle

import (
	"context"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Oracle is the capability contract for an external classifier. A concrete
// implementation is selected once at construction, not switched per call.
type Oracle interface {
	// Name identifies the oracle in contributions and logs.
	Name() string
	// Classify asks the oracle for its opinion on an item. The returned
	// error, when non-nil, is one of the typed failures in this package.
	Classify(ctx context.Context, item types.ContentItem, sig types.RuleSignal) (types.OracleOpinion, error)
}
