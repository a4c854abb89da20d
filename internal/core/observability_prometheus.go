package core

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation latency and outcome counts.
type PrometheusMetricsRecorder struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the visualiser collectors on reg.
// Collectors already registered by an earlier recorder are reused.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phenoqc",
		Subsystem: "visualiser",
		Name:      "operation_duration_seconds",
		Help:      "Latency of visualiser operations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"operation", "result"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phenoqc",
		Subsystem: "visualiser",
		Name:      "operations_total",
		Help:      "Visualiser operations by outcome.",
	}, []string{"operation", "result"})

	var err error
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if total, err = register(reg, total); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{duration: duration, total: total}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := resultLabel(success)
	r.duration.WithLabelValues(operation, result).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, result).Inc()
}
