package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opengov-pk/shafaf/internal/bus"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics scrape failed: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, nil)

		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if len(stats.Topics) != 1 || stats.Topics[0] != domain.TopicAlert {
			t.Errorf("expected alert topic subscription, got %v", stats.Topics)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		if got := w.GetStats().SubscriptionCount; got != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", got)
		}
	})

	t.Run("CountsFlaggedAssessments", func(t *testing.T) {
		m := metrics.New()
		w := NewWorker(eventBus, m)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		// Allow the subscription goroutine to come up
		time.Sleep(50 * time.Millisecond)

		payload, _ := json.Marshal(domain.AssessmentEvent{
			AssessmentID:   "asm-001",
			ContractNumber: "PROC-2024-101",
			Supplier:       "MedEquip Ltd",
			Amount:         8_000_000,
			Score:          0.7439,
			Level:          domain.RiskHigh,
			Flags:          2,
		})
		if err := eventBus.Publish(context.Background(), domain.TopicAlert, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		time.Sleep(100 * time.Millisecond)

		body := scrape(t, m)
		if !strings.Contains(body, `shafaf_risk_alerts_total{level="HIGH"} 1`) {
			t.Error("expected alert counter increment for HIGH level")
		}
	})

	t.Run("MalformedPayloadDoesNotCount", func(t *testing.T) {
		m := metrics.New()
		w := NewWorker(eventBus, m)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		eventBus.Publish(context.Background(), domain.TopicAlert, []byte("not-json"))

		payload, _ := json.Marshal(domain.AssessmentEvent{
			AssessmentID: "asm-002",
			Level:        domain.RiskCritical,
		})
		eventBus.Publish(context.Background(), domain.TopicAlert, payload)

		time.Sleep(100 * time.Millisecond)

		body := scrape(t, m)
		if strings.Contains(body, `level="HIGH"`) {
			t.Error("malformed payload should not increment any level")
		}
		if !strings.Contains(body, `shafaf_risk_alerts_total{level="CRITICAL"} 1`) {
			t.Error("expected alert counter increment for CRITICAL level")
		}
	})

	t.Run("NilMetricsTolerated", func(t *testing.T) {
		w := NewWorker(eventBus, nil)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		payload, _ := json.Marshal(domain.AssessmentEvent{
			AssessmentID: "asm-003",
			Level:        domain.RiskHigh,
		})
		if err := eventBus.Publish(context.Background(), domain.TopicAlert, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		time.Sleep(100 * time.Millisecond)
	})
}
