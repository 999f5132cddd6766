package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Dicklesworthstone/devdiag/internal/metrics"
	"github.com/Dicklesworthstone/devdiag/internal/model"
)

func TestRecorder_ObserveScan(t *testing.T) {
	r := metrics.New(prometheus.NewRegistry())

	r.ObserveScan(model.Snapshot{
		CPU:     model.CPU{UsagePercent: 42, PseudoTemperatureC: 45.5},
		Memory:  model.Memory{TotalMB: 4096, UsedMB: 2048},
		Health:  model.Health{BatteryLevelPercent: 87},
		History: make([]model.HistoryEntry, 3),
	}, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ScansTotal))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.CPUUsage))
	assert.Equal(t, 45.5, testutil.ToFloat64(r.CPUTemperature))
	assert.Equal(t, 2048.0, testutil.ToFloat64(r.MemoryUsedMB))
	assert.Equal(t, 4096.0, testutil.ToFloat64(r.MemoryTotalMB))
	assert.Equal(t, 87.0, testutil.ToFloat64(r.BatteryLevel))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.HistoryEntries))
}

func TestRecorder_Counters(t *testing.T) {
	r := metrics.New(prometheus.NewRegistry())
	r.SkippedScan()
	r.SkippedScan()
	r.Fallback("cpu")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ScansSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EstimatorFallback.WithLabelValues("cpu")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.EstimatorFallback.WithLabelValues("memory")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.ObserveScan(model.Snapshot{}, time.Second)
		r.SkippedScan()
		r.Fallback("health")
	})
}
