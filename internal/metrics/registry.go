// Package metrics exposes projection runs as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/persistence"
)

// Registry holds all Prometheus metrics for almrun. Each registry owns its own
// prometheus.Registry so several engines in one process do not collide.
type Registry struct {
	reg *prometheus.Registry

	// Path metrics
	PathDuration *prometheus.HistogramVec
	Paths        *prometheus.CounterVec

	// Run metrics
	Runs       *prometheus.CounterVec
	ActiveRuns prometheus.Gauge

	// Ladder calibration
	DefaultProbability    *prometheus.GaugeVec
	CalibrationIterations *prometheus.GaugeVec

	// Output stage
	SinkWrites   *prometheus.CounterVec
	SinkRows     *prometheus.CounterVec
	SinkDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every almrun metric registered
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		PathDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "almrun_path_duration_seconds",
				Help:    "Wall time of one projected path in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"scenario", "status"},
		),

		Paths: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "almrun_paths_total",
				Help: "Total number of projected paths by status",
			},
			[]string{"scenario", "status"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "almrun_runs_total",
				Help: "Total number of completed runs by status",
			},
			[]string{"scenario", "status"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "almrun_active_runs",
				Help: "Number of runs currently projecting paths",
			},
		),

		DefaultProbability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "almrun_default_probability",
				Help: "Calibrated annual default probability of the existing bond portfolio",
			},
			[]string{"scenario"},
		),

		CalibrationIterations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "almrun_calibration_iterations",
				Help: "Newton iterations used by the last calibration",
			},
			[]string{"scenario"},
		),

		SinkWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "almrun_sink_writes_total",
				Help: "Total number of path hand-offs to an output sink by result",
			},
			[]string{"sink", "result"},
		),

		SinkRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "almrun_sink_rows_total",
				Help: "Total number of records written to an output sink",
			},
			[]string{"sink"},
		),

		SinkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "almrun_sink_write_seconds",
				Help:    "Duration of one sink write in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
	}

	r.reg.MustRegister(
		r.PathDuration,
		r.Paths,
		r.Runs,
		r.ActiveRuns,
		r.DefaultProbability,
		r.CalibrationIterations,
		r.SinkWrites,
		r.SinkRows,
		r.SinkDuration,
	)

	return r
}

// ObserveCalibration records the solved default probability of a scenario
func (r *Registry) ObserveCalibration(scenario string, q float64, iterations int) {
	r.DefaultProbability.WithLabelValues(scenario).Set(q)
	r.CalibrationIterations.WithLabelValues(scenario).Set(float64(iterations))
}

// ObservePath records one finished or failed path
func (r *Registry) ObservePath(scenario, status string, elapsed time.Duration) {
	r.PathDuration.WithLabelValues(scenario, status).Observe(elapsed.Seconds())
	r.Paths.WithLabelValues(scenario, status).Inc()
}

// RunStarted increments the active run gauge
func (r *Registry) RunStarted(scenario string) {
	r.ActiveRuns.Inc()
	log.Debug().Str("scenario", scenario).Msg("Run metrics started")
}

// RunFinished counts the run and decrements the active run gauge
func (r *Registry) RunFinished(scenario, status string) {
	r.ActiveRuns.Dec()
	r.Runs.WithLabelValues(scenario, status).Inc()
}

// RecordSinkWrite records one sink write
func (r *Registry) RecordSinkWrite(sink string, rows int, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.SinkWrites.WithLabelValues(sink, result).Inc()
	r.SinkDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
	if err == nil {
		r.SinkRows.WithLabelValues(sink).Add(float64(rows))
	}
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler returns an HTTP handler for the registry's metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// InstrumentedSink times and counts every write to the wrapped sink
type InstrumentedSink struct {
	name    string
	next    persistence.PathSink
	metrics *Registry
}

// InstrumentSink wraps next so that writes show up under the given sink label
func (r *Registry) InstrumentSink(name string, next persistence.PathSink) *InstrumentedSink {
	return &InstrumentedSink{name: name, next: next, metrics: r}
}

// Write implements persistence.PathSink
func (s *InstrumentedSink) Write(ctx context.Context, rows []persistence.Row) error {
	start := time.Now()
	err := s.next.Write(ctx, rows)
	s.metrics.RecordSinkWrite(s.name, len(rows), time.Since(start), err)
	return err
}
