package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/config"
	requesttracking "github.com/PortNumber53/landing-intake/backend/internal/middleware"
	"github.com/PortNumber53/landing-intake/backend/internal/models"
	"github.com/PortNumber53/landing-intake/backend/internal/offers"
)

func newTestServer() *Server {
	cfg := config.Config{ServerAddress: ":0", NotifyLocation: time.UTC}
	return New(cfg, NewIntakeHandler(cfg, zap.NewNop()), nil, zap.NewNop())
}

func TestHealthRoute(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestIntakeRoutesAreMounted(t *testing.T) {
	server := newTestServer()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodOptions, "/api/lead", http.StatusNoContent},
		{http.MethodPost, "/api/lead", http.StatusInternalServerError},
		{http.MethodPut, "/api/create-checkout-session", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/create-checkout-session", http.StatusInternalServerError},
		{http.MethodGet, "/api/stripe-webhook", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/stripe-webhook", http.StatusBadRequest},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)

		if rr.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d", tc.method, tc.path, tc.want, rr.Code)
		}
	}
}

type countingRecorder struct {
	mu      sync.Mutex
	entries []models.Request
}

func (c *countingRecorder) CreateRequest(ctx context.Context, req models.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, req)
	return nil
}

func TestTrackerRecordsRoutePattern(t *testing.T) {
	recorder := &countingRecorder{}
	tracker := requesttracking.NewRequestTracker(recorder, zap.NewNop())
	cfg := config.Config{ServerAddress: ":0", NotifyLocation: time.UTC, Offers: offers.Catalog{}}
	server := New(cfg, NewIntakeHandler(cfg, zap.NewNop()), tracker, zap.NewNop())

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lead", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.entries) != 1 || recorder.entries[0].Endpoint != "/api/lead" {
		t.Fatalf("unexpected request log %+v", recorder.entries)
	}
}
