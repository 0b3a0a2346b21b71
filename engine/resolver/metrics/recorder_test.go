package resolvermetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecorder_RecordsMetrics(t *testing.T) {
	ctx := t.Context()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder, err := NewRecorder(provider.Meter("test"))
	require.NoError(t, err)

	recorder.RecordModelCall(ctx, 150*time.Millisecond, OutcomeSuccess)
	recorder.RecordRecovery(ctx, OutcomeRecovered)
	recorder.RecordReconcile(ctx, "fallback")
	recorder.RecordReconcile(ctx, "fallback")
	recorder.RecordExecution(ctx, time.Second, "success")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Len(t, names, 6)
	assert.Equal(t, int64(2), sums["pieceagent_resolver_reconcile_matches_total"])
	assert.Equal(t, int64(1), sums["pieceagent_resolver_model_calls_total"])
	assert.Equal(t, int64(1), sums["pieceagent_executor_runs_total"])
}

func TestRecorder_NopDoesNothing(t *testing.T) {
	t.Run("Should accept every call", func(t *testing.T) {
		rec, err := NewRecorder(nil)
		require.NoError(t, err)
		rec.RecordModelCall(t.Context(), time.Second, OutcomeError)
		rec.RecordRecovery(t.Context(), OutcomeError)
		rec.RecordReconcile(t.Context(), "exact")
		rec.RecordExecution(t.Context(), time.Second, "failed")
	})
}
