package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/e7canasta/orion-stream-health/internal/analysis"
	"github.com/e7canasta/orion-stream-health/internal/frame"
)

func TestMetricsSourceUp(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetSourceUp(frame.SourceCamera, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceUp.WithLabelValues("camera")))

	m.SetSourceUp(frame.SourceCamera, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sourceUp.WithLabelValues("camera")))
}

func TestMetricsObserveVerdict(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveVerdict(analysis.Verdict{
		Source: frame.SourceScreen,
		Status: analysis.StatusWarn,
		FPS:    4.5,
		Black:  true,
		Frozen: true,
	})
	m.ObserveVerdict(analysis.Verdict{
		Source: frame.SourceScreen,
		Status: analysis.StatusRun,
		FPS:    29.8,
	})

	assert.Equal(t, 29.8, testutil.ToFloat64(m.fps.WithLabelValues("screen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("screen", "warn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("screen", "run")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conditionsTotal.WithLabelValues("screen", "black")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conditionsTotal.WithLabelValues("screen", "frozen")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.conditionsTotal.WithLabelValues("screen", "idle")))
}

func TestMetricsRestartCounter(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncRestartScheduled(frame.SourceCamera)
	m.IncRestartScheduled(frame.SourceCamera)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.restartsTotal.WithLabelValues("camera")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.restartsTotal.WithLabelValues("screen")))
}
