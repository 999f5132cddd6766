// Package metrics exports scan results and scanner health to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

const namespace = "devdiag"

// Recorder holds the scanner's collectors. A nil *Recorder discards
// everything.
type Recorder struct {
	ScansTotal        prometheus.Counter
	ScansSkipped      prometheus.Counter
	EstimatorFallback *prometheus.CounterVec
	ScanDuration      prometheus.Histogram

	CPUUsage       prometheus.Gauge
	CPUTemperature prometheus.Gauge
	MemoryUsedMB   prometheus.Gauge
	MemoryTotalMB  prometheus.Gauge
	BatteryLevel   prometheus.Gauge
	HistoryEntries prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of completed scans",
		}),
		ScansSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_skipped_total",
			Help:      "Scan requests ignored because a scan was already running",
		}),
		EstimatorFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimator_fallbacks_total",
			Help:      "Estimator failures replaced by fallback samples",
		}, []string{"estimator"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CPUUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percent",
			Help:      "Estimated CPU usage",
		}),
		CPUTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_pseudo_temperature_celsius",
			Help:      "Temperature derived from estimated CPU usage",
		}),
		MemoryUsedMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_used_mb",
			Help:      "Estimated used memory in megabytes",
		}),
		MemoryTotalMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_total_mb",
			Help:      "Estimated total memory in megabytes",
		}),
		BatteryLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_level_percent",
			Help:      "Battery level",
		}),
		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Entries held in the trend history",
		}),
	}
	reg.MustRegister(
		r.ScansTotal,
		r.ScansSkipped,
		r.EstimatorFallback,
		r.ScanDuration,
		r.CPUUsage,
		r.CPUTemperature,
		r.MemoryUsedMB,
		r.MemoryTotalMB,
		r.BatteryLevel,
		r.HistoryEntries,
	)
	return r
}

// ObserveScan records a completed scan.
func (r *Recorder) ObserveScan(s model.Snapshot, d time.Duration) {
	if r == nil {
		return
	}
	r.ScansTotal.Inc()
	r.ScanDuration.Observe(d.Seconds())
	r.CPUUsage.Set(float64(s.CPU.UsagePercent))
	r.CPUTemperature.Set(s.CPU.PseudoTemperatureC)
	r.MemoryUsedMB.Set(s.Memory.UsedMB)
	r.MemoryTotalMB.Set(s.Memory.TotalMB)
	r.BatteryLevel.Set(float64(s.Health.BatteryLevelPercent))
	r.HistoryEntries.Set(float64(len(s.History)))
}

// SkippedScan records a scan request dropped due to overlap.
func (r *Recorder) SkippedScan() {
	if r == nil {
		return
	}
	r.ScansSkipped.Inc()
}

// Fallback records an estimator degrading to its fallback sample.
func (r *Recorder) Fallback(estimator string) {
	if r == nil {
		return
	}
	r.EstimatorFallback.WithLabelValues(estimator).Inc()
}
