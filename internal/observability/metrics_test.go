package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("analytics:export_archive").End(errors.New("disk full"))

	body := scrape(t, metrics)
	if !strings.Contains(body, `tallercar_jobs_total{job="analytics:export_archive",status="failure"} 1`) {
		t.Fatalf("expected job run counter, got: %s", body)
	}
	if !strings.Contains(body, `tallercar_jobs_failures_total{job="analytics:export_archive"} 1`) {
		t.Fatalf("expected job failure counter, got: %s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected runtime collectors")
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `tallercar_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `tallercar_http_request_duration_seconds_bucket{route="/test"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveExport(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveExport("repair_summary", "csv", 12)
	metrics.ObserveExport("repair_summary", "csv", 3)

	body := scrape(t, metrics)
	if !strings.Contains(body, `tallercar_exports_total{format="csv",shape="repair_summary"} 2`) {
		t.Fatalf("expected export counter, got: %s", body)
	}
	if !strings.Contains(body, `tallercar_export_rows_count{shape="repair_summary"} 2`) {
		t.Fatalf("expected export rows histogram, got: %s", body)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveExport("repair_summary", "csv", 1)
}
