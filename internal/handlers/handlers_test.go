package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-search/internal/breaker"
	"real-estate-search/internal/database"
	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
	"real-estate-search/internal/ratelimit"
	"real-estate-search/internal/scheduler"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

func apartment(id uint64, city, nb string, price float64) listing.Record {
	return listing.Record{
		ID:               id,
		AccountID:        1,
		PropertyID:       id,
		Kind:             models.ListingKindSale,
		Status:           models.ListingStatusActive,
		Price:            price,
		PropertyType:     models.PropertyTypeApartment,
		CitySlug:         city,
		NeighborhoodSlug: nb,
		CreatedAt:        now.AddDate(0, 0, -int(id)),
		UpdatedAt:        now.AddDate(0, 0, -int(id)),
	}
}

func catalogue() []listing.Record {
	sevilla := apartment(3, "sevilla", "triana", 150000)
	sevilla.PropertyType = models.PropertyTypeHouse
	return []listing.Record{
		apartment(1, "madrid", "chamberi", 300000),
		apartment(2, "madrid", "centro", 200000),
		sevilla,
	}
}

func newRouter(repo listing.Repository) *gin.Engine {
	engine := listing.NewEngine(repo, listing.WithClock(func() time.Time { return now }))
	r := gin.New()
	r.Use(RequestID())
	NewSearchHandler(engine, quiet).Register(r)
	return r
}

type searchResponse struct {
	Path          string            `json:"path"`
	CanonicalPath string            `json:"canonical_path"`
	Sort          string            `json:"sort"`
	State         stateJSON         `json:"state"`
	Count         int               `json:"count"`
	Results       []listing.Summary `json:"results"`
}

func get(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, searchResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body searchResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func resultIDs(s []listing.Summary) []uint64 {
	out := []uint64{}
	for _, r := range s {
		out = append(out, r.ID)
	}
	return out
}

func TestSearch(t *testing.T) {
	r := newRouter(database.NewMemoryRepository(catalogue()))

	w, body := get(t, r, "/api/search/venta-pisos/madrid?sort=precio-asc")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/venta-pisos/madrid", body.CanonicalPath)
	assert.Equal(t, "price-asc", body.Sort)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []uint64{2, 1}, resultIDs(body.Results))
	assert.Equal(t, "city", body.State.Location.Kind)
	assert.Equal(t, "madrid", body.State.Location.City)
	assert.Equal(t, `</venta-pisos/madrid>; rel="canonical"`, w.Header().Get("Link"))
}

func TestSearchHandEditedPath(t *testing.T) {
	r := newRouter(database.NewMemoryRepository(catalogue()))

	w, body := get(t, r, "/api/search/VENTA-PISOS/Madrid-Chamber%C3%AD/habitaciones-0/jardin?limit=abc")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/VENTA-PISOS/Madrid-Chamberí/habitaciones-0/jardin", body.Path)
	assert.Equal(t, "/venta-pisos/madrid-chamberi", body.CanonicalPath)
	assert.Equal(t, "featured", body.Sort)
	assert.Equal(t, []uint64{1}, resultIDs(body.Results))
}

func TestSearchNoResults(t *testing.T) {
	r := newRouter(database.NewMemoryRepository(catalogue()))

	w, body := get(t, r, "/api/search/alquiler-garajes/bilbao")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Results)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

type brokenRepo struct{}

func (brokenRepo) FindListings(context.Context, listing.Query) ([]listing.Record, error) {
	return nil, errors.New("connection refused")
}

func TestSearchUnavailable(t *testing.T) {
	r := newRouter(brokenRepo{})

	w, _ := get(t, r, "/api/search/venta-pisos/todas")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Search is temporarily unavailable","retryable":true}`, w.Body.String())
}

func TestBuildPath(t *testing.T) {
	r := newRouter(database.NewMemoryRepository(nil))

	for _, tc := range []struct {
		name string
		body string
		code int
		path string
	}{
		{
			name: "neighborhood inferred from names",
			body: `{"operation":"for-rent","property_type":"apartment","location":{"city":"Madrid","neighborhood":"Chamberí"}}`,
			code: http.StatusOK,
			path: "/alquiler-pisos/madrid-chamberi",
		},
		{
			name: "filters",
			body: `{"location":{"kind":"opportunity"},"price_max":250000,"min_bedrooms":3}`,
			code: http.StatusOK,
			path: "/venta-inmuebles/oportunidades/precio-hasta-250000/habitaciones-3",
		},
		{
			name: "unknown names fall back",
			body: `{"operation":"swap","property_type":"castle","location":{"kind":"city","city":"todas"}}`,
			code: http.StatusOK,
			path: "/venta-inmuebles/todas",
		},
		{
			name: "not json",
			body: `venta-pisos`,
			code: http.StatusBadRequest,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/search/path", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.code != http.StatusOK {
				return
			}
			var body struct {
				Path string `json:"path"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.path, body.Path)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(quiet))
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("meilisearch unreachable") }

	for _, tc := range []struct {
		name   string
		checks map[string]HealthCheck
		code   int
		want   string
	}{
		{"no checks", nil, http.StatusOK, `{"status":"ok","checks":{}}`},
		{"all ok", map[string]HealthCheck{"database": ok}, http.StatusOK, `{"status":"ok","checks":{"database":"ok"}}`},
		{
			"one down",
			map[string]HealthCheck{"database": ok, "search": down},
			http.StatusServiceUnavailable,
			`{"status":"degraded","checks":{"database":"ok","search":"meilisearch unreachable"}}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tc.checks).Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed int
}

func (r *recordingIndexer) IndexRecords(records []listing.Record, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed += len(records)
	return nil
}

func (r *recordingIndexer) PruneBefore(int64) error { return nil }

func newAdminRouter(sched *scheduler.Scheduler) *gin.Engine {
	r := gin.New()
	NewAdminHandler(sched, ratelimit.NewRateLimiter(60, 1000, true), quiet).Register(r.Group("/api/admin"))
	return r
}

func TestAdminReindexDisabled(t *testing.T) {
	r := newAdminRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/reindex/status", nil))
	assert.JSONEq(t, `{"status":"disabled"}`, w.Body.String())
}

func TestAdminTriggerReindex(t *testing.T) {
	indexer := &recordingIndexer{}
	reindexer := scheduler.NewReindexer(database.NewMemoryRepository(catalogue()), indexer, nil, 10, quiet)
	sched := scheduler.NewScheduler(reindexer, "0 3 * * *", time.Minute, quiet)
	r := newAdminRouter(sched)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return !reindexer.Running() && reindexer.LastRun().Indexed == 3
	}, 2*time.Second, 10*time.Millisecond)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/reindex/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Status  string             `json:"status"`
		LastRun scheduler.RunStats `json:"last_run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "idle", status.Status)
	assert.Equal(t, 3, status.LastRun.Indexed)
	assert.Equal(t, 1, status.LastRun.Batches)
}

func TestAdminRateLimitStats(t *testing.T) {
	r := newAdminRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/ratelimit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var stats ratelimit.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.True(t, stats.Enabled)
	assert.Equal(t, 60, stats.RemainingThisMinute)
}

func TestAdminStatsIncludesBreaker(t *testing.T) {
	cb := breaker.NewCircuitBreaker(1, time.Minute, quiet)
	cb.RecordFailure()

	r := gin.New()
	NewAdminHandler(nil, ratelimit.NewRateLimiter(60, 1000, true), quiet).
		WithBreaker(cb).
		Register(r.Group("/api/admin"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Reindex       map[string]string `json:"reindex"`
		SearchBreaker breaker.Status    `json:"search_breaker"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "disabled", stats.Reindex["status"])
	assert.True(t, stats.SearchBreaker.Open)
}
