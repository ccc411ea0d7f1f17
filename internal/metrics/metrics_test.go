package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read exposition: %v", err)
	}
	return string(body)
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.RecordAssessment("HIGH", 0.72)
	m.RecordAssessment("LOW", 0.12)
	m.RecordAlert("CRITICAL")
	m.RecordAssistantExchange("greeting", "english")
	m.RecordStoreLookup("found")
	m.RecordStoreLookup("not_found")

	body := scrape(t, m)
	for _, want := range []string{
		`shafaf_risk_assessments_total{level="HIGH"} 1`,
		`shafaf_risk_assessments_total{level="LOW"} 1`,
		`shafaf_risk_score_count 2`,
		`shafaf_risk_alerts_total{level="CRITICAL"} 1`,
		`shafaf_assistant_requests_total{intent="greeting",language="english"} 1`,
		`shafaf_store_lookups_total{result="found"} 1`,
		`shafaf_store_lookups_total{result="not_found"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	m := New()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/health", "/missing"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	for _, want := range []string{
		`shafaf_http_requests_total{method="GET",path="/health",status="200"} 2`,
		`shafaf_http_requests_total{method="GET",path="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if !strings.Contains(body, "shafaf_http_request_duration_seconds_count") {
		t.Error("exposition missing duration histogram")
	}
}

func TestIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.RecordAssessment("MEDIUM", 0.5)

	if body := scrape(t, b); strings.Contains(body, `level="MEDIUM"`) {
		t.Error("second registry observed first registry's samples")
	}
}
