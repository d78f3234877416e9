package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/risk-sentinel/internal/ratelimit"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; RiskSentinel/1.0)"

// feedEnvelope is the generic JSON feed shape this source consumes.
type feedEnvelope struct {
	Items []feedItem `json:"items"`
}

type feedItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url"`
	CreatedAt string `json:"created_at"`
}

// FeedSource collects items from an HTTP JSON feed endpoint. Every fetch
// passes through the shared rate limiter before touching the network.
type FeedSource struct {
	id      string
	baseURL string
	limiter *ratelimit.Limiter
	client  *http.Client
}

// NewFeedSource creates a feed source. The limiter is required; feeds are
// externally rate limited.
func NewFeedSource(id, baseURL string, limiter *ratelimit.Limiter) *FeedSource {
	return &FeedSource{
		id:      id,
		baseURL: baseURL,
		limiter: limiter,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ID identifies the source.
func (s *FeedSource) ID() string { return s.id }

// Fetch retrieves up to limit items from the feed.
func (s *FeedSource) Fetch(ctx context.Context, filter Filter, limit int) ([]types.ContentItem, error) {
	if !s.limiter.Acquire(ctx, true) {
		return nil, &TransientError{Source: s.id, Cause: ctx.Err()}
	}

	reqURL, err := s.buildURL(filter, limit)
	if err != nil {
		return nil, &TransientError{Source: s.id, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransientError{Source: s.id, Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransientError{Source: s.id, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Source: s.id}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &ForbiddenError{Source: s.id}
	case resp.StatusCode != http.StatusOK:
		return nil, &TransientError{Source: s.id, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var envelope feedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &TransientError{Source: s.id, Cause: fmt.Errorf("decoding feed: %w", err)}
	}

	items := make([]types.ContentItem, 0, len(envelope.Items))
	for _, fi := range envelope.Items {
		item := s.toContentItem(fi)
		if !matchesKeywords(item.Text, filter.Keywords) {
			continue
		}
		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *FeedSource) buildURL(filter Filter, limit int) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	if filter.TimeWindow != "" {
		q.Set("t", filter.TimeWindow)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *FeedSource) toContentItem(fi feedItem) types.ContentItem {
	text := fi.Text
	if fi.Title != "" {
		text = strings.TrimSpace(fi.Title + ". " + fi.Text)
	}
	collectedAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, fi.CreatedAt); err == nil {
		collectedAt = t
	}
	return types.ContentItem{
		ID:          s.id + ":" + fi.ID,
		Text:        text,
		ImageURL:    fi.ImageURL,
		Source:      s.id,
		CollectedAt: collectedAt,
	}
}

// matchesKeywords reports whether text contains at least one keyword. An
// empty keyword list matches everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
