// Package types defines the shared data model for content collection and risk analysis.
package types

import "time"

// ContentItem is a single collected piece of content (text post, message, or
// image reference). Items are immutable once produced by a collection source.
type ContentItem struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}

// HasImage reports whether the item carries an image worth vision analysis.
func (c ContentItem) HasImage() bool {
	return c.ImageURL != ""
}
