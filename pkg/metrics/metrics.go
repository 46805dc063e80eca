// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics tracks simulated analyses and comparisons
type BusinessMetrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	ComparisonsTotal *prometheus.CounterVec
	BiasScore        prometheus.Histogram
}

// NewBusinessMetrics registers the business collectors with reg,
// or the default registerer when reg is nil
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &BusinessMetrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Simulated article analyses by status.",
		}, []string{"status"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one simulated analysis.",
			Buckets:   []float64{0.1, 0.5, 1, 1.5, 2, 2.5, 3, 5, 10},
		}, []string{"status"}),
		ComparisonsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Comparison runs by outcome.",
		}, []string{"outcome"}),
		BiasScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bias_score",
			Help:      "Distribution of reported bias scores.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

// ObserveDurationWithExemplar records value on the status series, linking
// the current trace ID as an exemplar when one is sampled
func (m *BusinessMetrics) ObserveDurationWithExemplar(ctx context.Context, hv *prometheus.HistogramVec, value float64, status string) {
	observer := hv.WithLabelValues(status)

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsSampled() {
		if eo, ok := observer.(prometheus.ExemplarObserver); ok {
			eo.ObserveWithExemplar(value, prometheus.Labels{"trace_id": sc.TraceID().String()})
			return
		}
	}
	observer.Observe(value)
}

// ObserveAnalysis records one finished (or failed) simulated analysis
func (m *BusinessMetrics) ObserveAnalysis(ctx context.Context, duration time.Duration, biasScore float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ObserveDurationWithExemplar(ctx, m.AnalysisDuration, duration.Seconds(), status)
	m.AnalysesTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.BiasScore.Observe(biasScore)
	}
}

// ObserveComparison counts one comparison run by outcome
func (m *BusinessMetrics) ObserveComparison(_ context.Context, outcome string) {
	m.ComparisonsTotal.WithLabelValues(outcome).Inc()
}

// DatabaseMetrics exports connection pool statistics
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
}

// NewDatabaseMetrics registers pool gauges with reg, or the default
// registerer when reg is nil
func NewDatabaseMetrics(namespace string, reg prometheus.Registerer) *DatabaseMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		})
	}

	return &DatabaseMetrics{
		OpenConnections: gauge("open_connections", "Established connections, in use and idle."),
		InUse:           gauge("in_use_connections", "Connections currently in use."),
		Idle:            gauge("idle_connections", "Idle connections."),
		WaitCount:       gauge("wait_count", "Total connections waited for."),
	}
}

// UpdateDBStats copies the current pool statistics into the gauges
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
}
