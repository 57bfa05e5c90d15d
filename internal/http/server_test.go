package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/care-map/internal/config"
	"github.com/Clark-Hu/care-map/internal/coordinator"
	"github.com/Clark-Hu/care-map/internal/domain"
	"github.com/Clark-Hu/care-map/internal/logging"
	"github.com/Clark-Hu/care-map/internal/repository"
	"github.com/Clark-Hu/care-map/internal/snapshot"
)

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

type brokenStore struct {
	*repository.Memory
}

func (brokenStore) AddRating(context.Context, string, int) (domain.Rating, error) {
	return domain.Rating{}, errors.New("connection reset")
}

func testConfig() config.Config {
	return config.Config{
		Port:               "0",
		StoreDriver:        config.DriverMemory,
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		CORSAllowedOrigins: []string{"*"},
		WSSendBuffer:       16,
		WSWriteTimeout:     time.Second,
		WSPingInterval:     30 * time.Second,
		WSPongTimeout:      60 * time.Second,
	}
}

func buildTestServer(tb testing.TB, st coordinator.Store, health HealthChecker) (*Server, *coordinator.Coordinator) {
	tb.Helper()
	logger := logging.Discard()
	coord := coordinator.New(st, logger)
	tb.Cleanup(coord.Close)
	return New(testConfig(), health, coord, logger), coord
}

func seededMemory(tb testing.TB) *repository.Memory {
	tb.Helper()
	mem := repository.NewMemory(nil)
	if _, err := mem.CreateInstitution(context.Background(), "inst1", "Institution One"); err != nil {
		tb.Fatalf("seed: %v", err)
	}
	return mem
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleRoot(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})
	rec := serve(srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello World"}`, rec.Body.String())
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/healthz", "").Code)

	down, _ := buildTestServer(t, seededMemory(t), stubHealth{err: errors.New("down")})
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/healthz", "").Code)

	none, _ := buildTestServer(t, seededMemory(t), nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(none, http.MethodGet, "/healthz", "").Code)
}

func TestHandleSubmitRating_Success(t *testing.T) {
	srv, coord := buildTestServer(t, seededMemory(t), stubHealth{})

	rec := serve(srv, http.MethodPost, "/api/ratings/submit", `{"institution":"inst1","rating":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp submitRatingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Rating submitted successfully", resp.Status)
	assert.Equal(t, "inst1", resp.Rating.Institution)
	assert.Equal(t, 4, resp.Rating.Value)
	assert.Equal(t, int64(1), resp.Rating.ID)

	snap, err := coord.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{{ID: "inst1", Name: "Institution One", Ratings: []int{4}}}, snap)
}

func TestHandleSubmitRating_NotFound(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})

	rec := serve(srv, http.MethodPost, "/api/ratings/submit", `{"institution":"inst9","rating":4}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Institution 'inst9' not found", resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestHandleSubmitRating_PersistenceFailure(t *testing.T) {
	srv, _ := buildTestServer(t, brokenStore{seededMemory(t)}, stubHealth{})

	rec := serve(srv, http.MethodPost, "/api/ratings/submit", `{"institution":"inst1","rating":4}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHandleSubmitRating_InvalidPayload(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"institution":`, http.StatusUnprocessableEntity},
		{"empty body", ``, http.StatusUnprocessableEntity},
		{"rating not integer", `{"institution":"inst1","rating":"four"}`, http.StatusUnprocessableEntity},
		{"fractional rating", `{"institution":"inst1","rating":4.5}`, http.StatusUnprocessableEntity},
		{"missing rating", `{"institution":"inst1"}`, http.StatusUnprocessableEntity},
		{"missing institution", `{"rating":3}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"institution":"inst1","rating":3,"extra":true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(srv, http.MethodPost, "/api/ratings/submit", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleSubmitRating_BodyTooLarge(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})

	body := `{"institution":"` + strings.Repeat("x", maxRequestBody) + `","rating":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/ratings/submit", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.handleSubmitRating(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleGetData(t *testing.T) {
	srv, coord := buildTestServer(t, seededMemory(t), stubHealth{})
	_, err := coord.SubmitRating(context.Background(), "inst1", 3)
	require.NoError(t, err)

	for _, path := range []string{"/api/data", "/data"} {
		rec := serve(srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":"inst1","name":"Institution One","ratings":[3]}]`, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})

	req := httptest.NewRequest(http.MethodOptions, "/api/ratings/submit", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := buildTestServer(t, seededMemory(t), stubHealth{})
	_ = serve(srv, http.MethodPost, "/api/ratings/submit", `{"institution":"inst1","rating":2}`)

	rec := serve(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "care_map_ratings_submitted_total")
}
