package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/almrun/internal/persistence"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestRegistry_RunLifecycle(t *testing.T) {
	r := NewRegistry()

	r.RunStarted("base")
	assert.Equal(t, 1.0, gaugeValue(t, r.ActiveRuns))

	r.ObserveCalibration("base", 0.012, 4)
	r.ObservePath("base", "finished", 20*time.Millisecond)
	r.ObservePath("base", "finished", 30*time.Millisecond)
	r.ObservePath("base", "failed", time.Millisecond)
	r.RunFinished("base", "crashed")

	assert.Equal(t, 0.0, gaugeValue(t, r.ActiveRuns))
	assert.Equal(t, 0.012, gaugeValue(t, r.DefaultProbability.WithLabelValues("base")))
	assert.Equal(t, 4.0, gaugeValue(t, r.CalibrationIterations.WithLabelValues("base")))
	assert.Equal(t, 2.0, counterValue(t, r.Paths.WithLabelValues("base", "finished")))
	assert.Equal(t, 1.0, counterValue(t, r.Paths.WithLabelValues("base", "failed")))
	assert.Equal(t, 1.0, counterValue(t, r.Runs.WithLabelValues("base", "crashed")))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	var histogram *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "almrun_path_duration_seconds" {
			histogram = f
		}
	}
	require.NotNil(t, histogram)
	var samples uint64
	for _, m := range histogram.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestRegistry_IndependentInstances(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.RunStarted("base")
	assert.Equal(t, 0.0, gaugeValue(t, b.ActiveRuns))
}

type stubSink struct{ err error }

func (s stubSink) Write(context.Context, []persistence.Row) error { return s.err }

func TestInstrumentedSink(t *testing.T) {
	r := NewRegistry()
	rows := make([]persistence.Row, 3)

	ok := r.InstrumentSink("file", stubSink{})
	require.NoError(t, ok.Write(context.Background(), rows))

	boom := errors.New("down")
	bad := r.InstrumentSink("postgres", stubSink{err: boom})
	assert.ErrorIs(t, bad.Write(context.Background(), rows), boom)

	assert.Equal(t, 1.0, counterValue(t, r.SinkWrites.WithLabelValues("file", "success")))
	assert.Equal(t, 3.0, counterValue(t, r.SinkRows.WithLabelValues("file")))
	assert.Equal(t, 1.0, counterValue(t, r.SinkWrites.WithLabelValues("postgres", "error")))
	assert.Equal(t, 0.0, counterValue(t, r.SinkRows.WithLabelValues("postgres")))
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveCalibration("stress", 0.02, 3)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `almrun_default_probability{scenario="stress"} 0.02`)
	assert.Contains(t, string(body), "almrun_active_runs 0")
}
