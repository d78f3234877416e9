// Package collect defines the collection-collaborator contract and the
// built-in sources that produce content items for analysis. Sources are rate
// limited and fail with typed errors so one bad source never aborts a run.
package collect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Filter narrows what a source fetches.
type Filter struct {
	// Keywords, when set, keeps only items whose text contains at least one
	// keyword (case-insensitive).
	Keywords []string
	// TimeWindow is a source-interpreted hint such as "day" or "week".
	TimeWindow string
}

// Source is the collection-collaborator capability: it fetches an ordered
// sequence of content items.
type Source interface {
	// ID identifies the source in job parameters and events.
	ID() string
	// Fetch returns up to limit items matching the filter. Errors are one of
	// the typed failures in this package.
	Fetch(ctx context.Context, filter Filter, limit int) ([]types.ContentItem, error)
}

// NotFoundError indicates the source does not exist upstream.
type NotFoundError struct {
	Source string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s not found", e.Source)
}

// ForbiddenError indicates the collaborator refused access to the source.
type ForbiddenError struct {
	Source string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access to source %s forbidden", e.Source)
}

// TransientError indicates a temporary collection failure. Transient
// failures are skipped per source, never fatal to a whole run.
type TransientError struct {
	Source string
	Cause  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure collecting from %s: %v", e.Source, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a transient collection failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
