package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/care-map/internal/config"
	"github.com/Clark-Hu/care-map/internal/coordinator"
	httpserver "github.com/Clark-Hu/care-map/internal/http"
	"github.com/Clark-Hu/care-map/internal/live"
	"github.com/Clark-Hu/care-map/internal/logging"
	"github.com/Clark-Hu/care-map/internal/repository"
	"github.com/Clark-Hu/care-map/internal/snapshot"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := repository.NewMemory(nil)
	_, err := mem.CreateInstitution(context.Background(), "inst1", "Institution One")
	require.NoError(t, err)

	logger := logging.Discard()
	coord := coordinator.New(mem, logger)
	t.Cleanup(coord.Close)

	cfg := config.Config{
		StoreDriver:        config.DriverMemory,
		CORSAllowedOrigins: []string{"*"},
		WSSendBuffer:       16,
		WSWriteTimeout:     time.Second,
		WSPingInterval:     30 * time.Second,
		WSPongTimeout:      60 * time.Second,
	}
	ts := httptest.NewServer(httpserver.New(cfg, mem, coord, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, 2*time.Second, logging.Discard())
	require.NoError(t, err)
	return c
}

func TestNew_RejectsNonHTTPScheme(t *testing.T) {
	_, err := New("ftp://example.com", time.Second, nil)
	assert.Error(t, err)
}

func TestSubmitRatingAndData(t *testing.T) {
	ts := startServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	rating, err := c.SubmitRating(ctx, "inst1", 5)
	require.NoError(t, err)
	assert.Equal(t, "inst1", rating.Institution)
	assert.Equal(t, 5, rating.Value)

	snap, err := c.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{{ID: "inst1", Name: "Institution One", Ratings: []int{5}}}, snap)
}

func TestSubmitRating_UnknownInstitution(t *testing.T) {
	ts := startServer(t)
	_, err := newClient(t, ts.URL).SubmitRating(context.Background(), "inst9", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitRating_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to submit rating","code":"INTERNAL_ERROR"}`))
	}))
	t.Cleanup(ts.Close)

	_, err := newClient(t, ts.URL).SubmitRating(context.Background(), "inst1", 3)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
}

func TestWatch_ReceivesInitialThenUpdate(t *testing.T) {
	ts := startServer(t)
	c := newClient(t, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs := make(chan live.Message, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(m live.Message) error {
			msgs <- m
			return nil
		})
	}()

	first := <-msgs
	assert.Equal(t, live.TypeInitialData, first.Type)
	assert.Equal(t, []int{}, first.Data[0].Ratings)

	_, err := c.SubmitRating(ctx, "inst1", 2)
	require.NoError(t, err)

	update := <-msgs
	assert.Equal(t, live.TypeDataUpdate, update.Type)
	assert.Equal(t, []int{2}, update.Data[0].Ratings)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_CallbackErrorStops(t *testing.T) {
	ts := startServer(t)
	stopErr := errors.New("stop")

	err := newClient(t, ts.URL).Watch(context.Background(), func(live.Message) error { return stopErr })
	assert.ErrorIs(t, err, stopErr)
}
