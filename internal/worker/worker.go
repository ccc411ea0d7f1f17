// Package worker surfaces flagged assessments from the alert topic.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/metrics"
)

// Worker consumes alert events published for HIGH and CRITICAL
// assessments and turns each into a structured log line and a counter
// increment. It holds no state of its own; losing an event loses a log
// line, never data.
type Worker struct {
	bus     domain.EventBus
	metrics *metrics.Metrics

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates an alert worker. metrics may be nil.
func NewWorker(bus domain.EventBus, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the alert topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAlert, w.handleAlert)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("alert worker started", "topic", domain.TopicAlert)
	return nil
}

// handleAlert logs one flagged assessment and bumps the alert counter.
func (w *Worker) handleAlert(ctx context.Context, msg *domain.Message) error {
	var event domain.AssessmentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse alert event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Warn("high risk contract flagged",
		"assessment_id", event.AssessmentID,
		"contract_number", event.ContractNumber,
		"supplier", event.Supplier,
		"amount", event.Amount,
		"risk_score", event.Score,
		"risk_level", event.Level,
		"flags", event.Flags,
	)

	if w.metrics != nil {
		w.metrics.RecordAlert(event.Level)
	}
	return nil
}

// Stop cancels the subscription context and unsubscribes.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("alert worker stopped")
	return nil
}

// Stats describes the worker's active subscriptions.
type Stats struct {
	SubscriptionCount int      `json:"subscription_count"`
	Topics            []string `json:"topics"`
}

// GetStats returns current subscription statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
