package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/jonathan/risk-sentinel/internal/ratelimit"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// defaultPostSelector matches the common markup for forum and board posts.
const defaultPostSelector = "article, .post, .message"

// PageSource collects items by scraping posts out of a server-rendered HTML
// page. Single-page apps that render client side are out of scope; the
// sources this system watches serve plain HTML or JSON.
type PageSource struct {
	id       string
	pageURL  string
	selector string
	limiter  *ratelimit.Limiter
	client   *http.Client
}

// NewPageSource creates an HTML page source. An empty selector uses the
// default post selector.
func NewPageSource(id, pageURL, selector string, limiter *ratelimit.Limiter) *PageSource {
	if selector == "" {
		selector = defaultPostSelector
	}
	return &PageSource{
		id:       id,
		pageURL:  pageURL,
		selector: selector,
		limiter:  limiter,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ID identifies the source.
func (s *PageSource) ID() string { return s.id }

// Fetch scrapes up to limit posts from the page.
func (s *PageSource) Fetch(ctx context.Context, filter Filter, limit int) ([]types.ContentItem, error) {
	if !s.limiter.Acquire(ctx, true) {
		return nil, &TransientError{Source: s.id, Cause: ctx.Err()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, &TransientError{Source: s.id, Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

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

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &TransientError{Source: s.id, Cause: fmt.Errorf("parsing page: %w", err)}
	}

	now := time.Now().UTC()
	var items []types.ContentItem
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := collapseWhitespace(sel.Text())
		if text == "" || !matchesKeywords(text, filter.Keywords) {
			return true
		}
		item := types.ContentItem{
			ID:          s.id + ":" + uuid.New().String(),
			Text:        text,
			Source:      s.id,
			CollectedAt: now,
		}
		if img, ok := sel.Find("img").First().Attr("src"); ok {
			item.ImageURL = img
		}
		items = append(items, item)
		return len(items) < limit
	})
	return items, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
