package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the fraud-domain metrics for the engine.
type Registry struct {
	meter metric.Meter

	// Evaluation metrics
	EvaluationDuration metric.Float64Histogram
	EvaluationCounter  metric.Int64Counter
	FlaggedCounter     metric.Int64Counter

	// Signal metrics
	SignalTriggeredCounter metric.Int64Counter

	// Notification metrics
	NotifyQueueDepth   metric.Int64UpDownCounter
	NotifyDroppedCount metric.Int64Counter
}

// NewRegistry creates and registers all fraud engine metrics.
func NewRegistry() (*Registry, error) {
	meter := otel.Meter("credential-fraud-engine")

	r := &Registry{meter: meter}

	var err error

	r.EvaluationDuration, err = meter.Float64Histogram(
		"fraud.evaluation.duration",
		metric.WithDescription("Time to evaluate one event through all signals"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	r.EvaluationCounter, err = meter.Int64Counter(
		"fraud.evaluations.total",
		metric.WithDescription("Total events evaluated"),
	)
	if err != nil {
		return nil, err
	}

	r.FlaggedCounter, err = meter.Int64Counter(
		"fraud.evaluations.flagged",
		metric.WithDescription("Evaluations that produced a fraud alert"),
	)
	if err != nil {
		return nil, err
	}

	r.SignalTriggeredCounter, err = meter.Int64Counter(
		"fraud.signals.triggered",
		metric.WithDescription("Individual signal triggers by signal name"),
	)
	if err != nil {
		return nil, err
	}

	r.NotifyQueueDepth, err = meter.Int64UpDownCounter(
		"fraud.notify.queue_depth",
		metric.WithDescription("Alerts waiting in the outbound notification queue"),
	)
	if err != nil {
		return nil, err
	}

	r.NotifyDroppedCount, err = meter.Int64Counter(
		"fraud.notify.dropped",
		metric.WithDescription("Alert notifications dropped because the queue was full"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordEvaluation records one completed evaluation.
func (r *Registry) RecordEvaluation(ctx context.Context, duration time.Duration, flagged bool) {
	r.EvaluationDuration.Record(ctx, float64(duration.Milliseconds()))
	r.EvaluationCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("flagged", flagged)))
	if flagged {
		r.FlaggedCounter.Add(ctx, 1)
	}
}

// RecordSignalTriggered records one signal trigger.
func (r *Registry) RecordSignalTriggered(ctx context.Context, signal string) {
	r.SignalTriggeredCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", signal)))
}

// RecordNotifyEnqueued tracks queue depth growth.
func (r *Registry) RecordNotifyEnqueued(ctx context.Context) {
	r.NotifyQueueDepth.Add(ctx, 1)
}

// RecordNotifyDelivered tracks queue depth shrinkage.
func (r *Registry) RecordNotifyDelivered(ctx context.Context) {
	r.NotifyQueueDepth.Add(ctx, -1)
}

// RecordNotifyDropped counts a dropped notification.
func (r *Registry) RecordNotifyDropped(ctx context.Context) {
	r.NotifyDroppedCount.Add(ctx, 1)
}
