package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	monerrors "github.com/ringwatch/ringwatch/internal/errors"
)

// RunMetrics instruments the monitor's own behavior. Registered on the
// sink registry so the self-observations ride the same push as the
// ring observations.
type RunMetrics struct {
	targetDuration *prometheus.HistogramVec
	targetResults  *prometheus.CounterVec
	targetErrors   *prometheus.CounterVec
	pointsWritten  *prometheus.CounterVec
}

// NewRunMetrics registers run instrumentation on the given registerer.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	rm := &RunMetrics{
		targetDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ringwatch",
				Subsystem: "run",
				Name:      "target_duration_seconds",
				Help:      "Duration of one target's acquire-parse-emit cycle.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
			},
			[]string{"target"},
		),
		targetResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringwatch",
				Subsystem: "run",
				Name:      "target_total",
				Help:      "Target processing attempts partitioned by result.",
			},
			[]string{"target", "result"},
		),
		targetErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringwatch",
				Subsystem: "run",
				Name:      "target_errors_total",
				Help:      "Target processing failures grouped by error type.",
			},
			[]string{"target", "error_type"},
		),
		pointsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringwatch",
				Subsystem: "run",
				Name:      "points_total",
				Help:      "Metric points written to the sink partitioned by result.",
			},
			[]string{"target", "result"},
		),
	}

	reg.MustRegister(
		rm.targetDuration,
		rm.targetResults,
		rm.targetErrors,
		rm.pointsWritten,
	)
	return rm
}

// RecordTarget records instrumentation for one finished target.
func (rm *RunMetrics) RecordTarget(outcome TargetOutcome) {
	if rm == nil {
		return
	}

	name := outcome.Target.Name
	rm.targetDuration.WithLabelValues(name).Observe(outcome.Duration.Seconds())

	result := "success"
	if !outcome.Success {
		result = "error"
	}
	rm.targetResults.WithLabelValues(name, result).Inc()

	if outcome.Err != nil {
		rm.targetErrors.WithLabelValues(name, monerrors.Classify(outcome.Err)).Inc()
	}

	if outcome.Emit.Succeeded > 0 {
		rm.pointsWritten.WithLabelValues(name, "success").Add(float64(outcome.Emit.Succeeded))
	}
	if outcome.Emit.Failed > 0 {
		rm.pointsWritten.WithLabelValues(name, "error").Add(float64(outcome.Emit.Failed))
	}
}

// clampDuration guards against clock skew producing negative values.
func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
