package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/Clark-Hu/care-map/internal/live"
)

type benchSubscriber struct{ id uuid.UUID }

func (b benchSubscriber) ID() uuid.UUID { return b.id }
func (b benchSubscriber) Send([]byte) error { return nil }
func (b benchSubscriber) Close() {}

var _ live.Subscriber = benchSubscriber{}

func BenchmarkHandleSubmitRating(b *testing.B) {
	srv, coord := buildTestServer(b, seededMemory(b), stubHealth{})
	for i := 0; i < 100; i++ {
		if err := coord.Subscribe(context.Background(), benchSubscriber{id: uuid.New()}); err != nil {
			b.Fatalf("subscribe: %v", err)
		}
	}

	payload := []byte(`{"institution":"inst1","rating":4}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/ratings/submit", bytes.NewReader(payload))
		rec := httptest.NewRecorder()

		srv.handleSubmitRating(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
