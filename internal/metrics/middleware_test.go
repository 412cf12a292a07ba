package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/drafts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/drafts", "200"))
	if rr := serve(r, "POST", "/v1/drafts"); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/drafts", "200"))
	if after-before != 1 {
		t.Errorf("expected http_requests_total to grow by 1, got %f", after-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
	if v := testutil.ToFloat64(httpRequestsInFlight); v != 0 {
		t.Errorf("expected no requests in flight, got %f", v)
	}
}

func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/reviews", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.WriteHeader(http.StatusOK) // ignored, first status wins
	})

	serve(r, "POST", "/v1/reviews")

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/reviews", "502")); v < 1 {
		t.Errorf("expected a 502 sample, got %f", v)
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	serve(r, "GET", "/does/not/exist/123")

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")); v < 1 {
		t.Errorf("expected unmatched 404 sample, got %f", v)
	}
}

func TestRouteLabel_NoRouteContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/raw", http.NoBody)
	if got := routeLabel(req); got != unmatchedRoute {
		t.Errorf("routeLabel() = %q, want %q", got, unmatchedRoute)
	}
}

func TestRegister_ConcurrentCalls(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RegisterEmbeddingMetrics()
			RegisterRAGMetrics()
			RegisterHTTPMetrics()
		}()
	}
	wg.Wait()

	// A second registration of the same collector must be rejected by the default registry.
	var are prometheus.AlreadyRegisteredError
	if err := prometheus.Register(httpRequestsTotal); !errors.As(err, &are) {
		t.Fatalf("expected http metrics to be registered, got %v", err)
	}
	if err := prometheus.Register(EmbeddingRequestsTotal); !errors.As(err, &are) {
		t.Fatalf("expected embedding metrics to be registered, got %v", err)
	}
	if err := prometheus.Register(IngestRecordsTotal); !errors.As(err, &are) {
		t.Fatalf("expected rag metrics to be registered, got %v", err)
	}
}
