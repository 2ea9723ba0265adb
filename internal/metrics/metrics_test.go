package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwice(t *testing.T) {
	Register()
	Register()
}

func TestSetUsage(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	SetUsage(120, 300, 180, at)

	if got := testutil.ToFloat64(PremiumRequests.WithLabelValues("remaining")); got != 180 {
		t.Fatalf("remaining = %v, want 180", got)
	}
	if got := testutil.ToFloat64(SnapshotTimestamp); got != float64(at.Unix()) {
		t.Fatalf("timestamp = %v, want %v", got, at.Unix())
	}
}

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(FetchesTotal.WithLabelValues("network"))
	ObserveFetch("network", 2*time.Second)
	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("network")); got != before+1 {
		t.Fatalf("fetches_total{network} = %v, want %v", got, before+1)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/items/42", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/items/{id}", "418"))
	if got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}
}
