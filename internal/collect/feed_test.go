package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/risk-sentinel/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(&ratelimit.Config{Rate: 1000, Burst: 1000, PerMinute: 10000})
}

func TestFeedSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"id": "1", "title": "For sale", "text": "old couch, good condition", "created_at": "2026-08-01T12:00:00Z"},
			{"id": "2", "text": "selling guns cheap", "image_url": "https://img.example/x.jpg"}
		]}`))
	}))
	defer srv.Close()

	src := NewFeedSource("feed", srv.URL, testLimiter())
	items, err := src.Fetch(context.Background(), Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "feed:1", items[0].ID)
	assert.Equal(t, "For sale. old couch, good condition", items[0].Text)
	assert.Equal(t, "feed", items[0].Source)
	assert.Equal(t, 2026, items[0].CollectedAt.Year())

	assert.Equal(t, "https://img.example/x.jpg", items[1].ImageURL)
	assert.True(t, items[1].HasImage())
}

func TestFeedSource_KeywordFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": [
			{"id": "1", "text": "selling guns cheap"},
			{"id": "2", "text": "lovely weather today"}
		]}`))
	}))
	defer srv.Close()

	src := NewFeedSource("feed", srv.URL, testLimiter())
	items, err := src.Fetch(context.Background(), Filter{Keywords: []string{"GUNS"}}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "feed:1", items[0].ID)
}

func TestFeedSource_LimitRespected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": [
			{"id": "1", "text": "a"}, {"id": "2", "text": "b"}, {"id": "3", "text": "c"}
		]}`))
	}))
	defer srv.Close()

	src := NewFeedSource("feed", srv.URL, testLimiter())
	items, err := src.Fetch(context.Background(), Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFeedSource_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusNotFound, func(t *testing.T, err error) {
			assert.IsType(t, &NotFoundError{}, err)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			assert.IsType(t, &ForbiddenError{}, err)
		}},
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.IsType(t, &ForbiddenError{}, err)
		}},
		{http.StatusBadGateway, func(t *testing.T, err error) {
			assert.True(t, IsTransient(err))
		}},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		src := NewFeedSource("feed", srv.URL, testLimiter())
		_, err := src.Fetch(context.Background(), Filter{}, 10)
		require.Error(t, err, "status %d", tt.status)
		tt.check(t, err)
		srv.Close()
	}
}

func TestFeedSource_MalformedBodyIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	src := NewFeedSource("feed", srv.URL, testLimiter())
	_, err := src.Fetch(context.Background(), Filter{}, 10)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestFeedSource_TimeWindowForwarded(t *testing.T) {
	var gotWindow string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWindow = r.URL.Query().Get("t")
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	src := NewFeedSource("feed", srv.URL, testLimiter())
	_, err := src.Fetch(context.Background(), Filter{TimeWindow: "day"}, 10)
	require.NoError(t, err)
	assert.Equal(t, "day", gotWindow)
}
