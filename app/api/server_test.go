package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/opportunity-comb/app/cache"
	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

func record(id, source string, published string, tags ...string) opportunity.Record {
	created := opportunity.NewTimestamp(time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC))
	r := opportunity.Record{
		ID:        id,
		Title:     "Opportunity " + id,
		URL:       "https://example.com/" + id,
		Source:    source,
		SourceURL: "https://example.com/" + source + ".xml",
		Tags:      append([]string{}, tags...),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if published != "" {
		ts, err := opportunity.ParseTimestamp(published)
		if err != nil {
			panic(err)
		}
		r.PublishedAt = &ts
	}
	return r
}

func newTestServer(t *testing.T, apiKey string, feedCache cache.CacheInterface) *gin.Engine {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	opportunities := database.NewOpportunityRepository(db)
	runs := database.NewRunRepository(db)

	require.NoError(t, opportunities.ReplaceAll(ctx, []opportunity.Record{
		record("c", "acme", "2024-03-02T09:00:00Z", "grant"),
		record("a", "globex", "2024-03-01T09:00:00Z", "job"),
		record("b", "acme", "", "job"),
	}))
	_, err = runs.RecordRun(ctx, database.Run{
		StartedAt:     time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC),
		FinishedAt:    time.Date(2024, 3, 3, 8, 0, 5, 0, time.UTC),
		Batches:       2,
		RecordsRead:   4,
		UniqueRecords: 3,
	})
	require.NoError(t, err)

	handler := NewHandler(opportunities, runs, feed.NewGenerator(), feedCache, HandlerConfig{
		BaseURL:  "https://opps.example/",
		FeedSize: 2,
		CacheTTL: time.Minute,
		Version:  "test",
	})
	return NewServer(handler, apiKey)
}

func perform(server http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, "", nil)

	w := perform(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Opportunities int           `json:"opportunities"`
		Version       string        `json:"version"`
		LastRun       *database.Run `json:"last_run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Opportunities)
	assert.Equal(t, "test", body.Version)
	require.NotNil(t, body.LastRun)
	assert.Equal(t, 3, body.LastRun.UniqueRecords)
}

func TestStats(t *testing.T) {
	server := newTestServer(t, "", nil)

	w := perform(server, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"sources": [{"source": "acme", "count": 2}, {"source": "globex", "count": 1}],
		"total": 3
	}`, w.Body.String())
}

func TestListOpportunities(t *testing.T) {
	server := newTestServer(t, "", nil)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all in dataset order", "", []string{"c", "a", "b"}},
		{"by source", "?source=acme", []string{"c", "b"}},
		{"by tag", "?tag=job", []string{"a", "b"}},
		{"paged", "?limit=1&offset=1", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(server, http.MethodGet, "/opportunities"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var body listResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

			got := make([]string, 0, len(body.Opportunities))
			for _, r := range body.Opportunities {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), body.Count)
		})
	}
}

func TestListOpportunitiesRejectsBadPaging(t *testing.T) {
	server := newTestServer(t, "", nil)

	for _, query := range []string{"?limit=0", "?limit=abc", "?offset=-1"} {
		w := perform(server, http.MethodGet, "/opportunities"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestGetOpportunity(t *testing.T) {
	server := newTestServer(t, "", nil)

	w := perform(server, http.MethodGet, "/opportunities/a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got opportunity.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, record("a", "globex", "2024-03-01T09:00:00Z", "job"), got)

	w = perform(server, http.MethodGet, "/opportunities/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedXML(t *testing.T) {
	server := newTestServer(t, "", nil)

	w := perform(server, http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("X-Cache"))

	body := w.Body.String()
	assert.Contains(t, body, "<title>Opportunity c</title>")
	assert.Contains(t, body, "<title>Opportunity a</title>")
	assert.NotContains(t, body, "<title>Opportunity b</title>")
	assert.Contains(t, body, `href="https://opps.example/feed.xml"`)
}

func TestFeedXMLCached(t *testing.T) {
	feedCache := cache.NewMemoryCache(8, time.Minute)
	server := newTestServer(t, "", feedCache)

	first := perform(server, http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := perform(server, http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	w := perform(server, http.MethodGet, "/health", nil)
	assert.Contains(t, w.Body.String(), `"type":"memory"`)
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(t, "secret", nil)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(server, http.MethodGet, "/opportunities", tt.headers)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := perform(server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health stays public")
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, "", nil)

	w := perform(server, http.MethodOptions, "/opportunities", map[string]string{
		"Origin":                        "https://board.example",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, "", nil)

	require.Equal(t, http.StatusOK, perform(server, http.MethodGet, "/stats", nil).Code)

	w := perform(server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `opportunity_comb_http_requests_total{method="GET",path="/stats",status_code="200"}`)
}
