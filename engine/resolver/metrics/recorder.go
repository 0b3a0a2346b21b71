package resolvermetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPrefix = "pieceagent_"

	labelOutcome = "outcome"
	labelMatch   = "match"
	labelStatus  = "status"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeRecovered marks a level whose output was salvaged from a fenced reply.
	OutcomeRecovered = "recovered"
)

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Recorder captures resolution and execution telemetry.
type Recorder interface {
	RecordModelCall(ctx context.Context, duration time.Duration, outcome string)
	RecordRecovery(ctx context.Context, outcome string)
	RecordReconcile(ctx context.Context, match string)
	RecordExecution(ctx context.Context, duration time.Duration, status string)
}

type recorder struct {
	modelCalls      metric.Int64Counter
	modelLatency    metric.Float64Histogram
	recoveries      metric.Int64Counter
	reconciles      metric.Int64Counter
	executions      metric.Int64Counter
	executionTiming metric.Float64Histogram
}

// NewRecorder registers the resolver instruments with meter. A nil meter
// yields the no-op recorder.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	if meter == nil {
		return Nop(), nil
	}
	modelCalls, err := meter.Int64Counter(
		metricPrefix+"resolver_model_calls_total",
		metric.WithDescription("Structured generation calls issued per dependency level"),
	)
	if err != nil {
		return nil, fmt.Errorf("create model call counter: %w", err)
	}
	modelLatency, err := meter.Float64Histogram(
		metricPrefix+"resolver_model_call_seconds",
		metric.WithDescription("Structured generation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create model latency histogram: %w", err)
	}
	recoveries, err := meter.Int64Counter(
		metricPrefix+"resolver_recoveries_total",
		metric.WithDescription("Fenced JSON recovery attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recovery counter: %w", err)
	}
	reconciles, err := meter.Int64Counter(
		metricPrefix+"resolver_reconcile_matches_total",
		metric.WithDescription("Choice values reconciled by match kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reconcile counter: %w", err)
	}
	executions, err := meter.Int64Counter(
		metricPrefix+"executor_runs_total",
		metric.WithDescription("Action executions by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create execution counter: %w", err)
	}
	executionTiming, err := meter.Float64Histogram(
		metricPrefix+"executor_run_seconds",
		metric.WithDescription("Action execution latency including resolution"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create execution histogram: %w", err)
	}
	return &recorder{
		modelCalls:      modelCalls,
		modelLatency:    modelLatency,
		recoveries:      recoveries,
		reconciles:      reconciles,
		executions:      executions,
		executionTiming: executionTiming,
	}, nil
}

func (r *recorder) RecordModelCall(ctx context.Context, duration time.Duration, outcome string) {
	attrs := metric.WithAttributes(attribute.String(labelOutcome, outcome))
	r.modelCalls.Add(ctx, 1, attrs)
	if duration >= 0 {
		r.modelLatency.Record(ctx, duration.Seconds(), attrs)
	}
}

func (r *recorder) RecordRecovery(ctx context.Context, outcome string) {
	r.recoveries.Add(ctx, 1, metric.WithAttributes(attribute.String(labelOutcome, outcome)))
}

func (r *recorder) RecordReconcile(ctx context.Context, match string) {
	r.reconciles.Add(ctx, 1, metric.WithAttributes(attribute.String(labelMatch, match)))
}

func (r *recorder) RecordExecution(ctx context.Context, duration time.Duration, status string) {
	attrs := metric.WithAttributes(attribute.String(labelStatus, status))
	r.executions.Add(ctx, 1, attrs)
	if duration >= 0 {
		r.executionTiming.Record(ctx, duration.Seconds(), attrs)
	}
}

type nopRecorder struct{}

// Nop returns a recorder that drops every measurement.
func Nop() Recorder {
	return nopRecorder{}
}

func (nopRecorder) RecordModelCall(context.Context, time.Duration, string) {}
func (nopRecorder) RecordRecovery(context.Context, string) {}
func (nopRecorder) RecordReconcile(context.Context, string) {}
func (nopRecorder) RecordExecution(context.Context, time.Duration, string) {}
