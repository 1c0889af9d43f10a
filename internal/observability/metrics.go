// Package observability exposes the monitor's operational metrics in
// Prometheus format.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/e7canasta/orion-stream-health/internal/analysis"
	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// Metrics implements monitor.Observer over a Prometheus registry.
type Metrics struct {
	sourceUp        *prometheus.GaugeVec
	fps             *prometheus.GaugeVec
	ticksTotal      *prometheus.CounterVec
	conditionsTotal *prometheus.CounterVec
	restartsTotal   *prometheus.CounterVec
}

// NewMetrics registers the monitor metric families on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sourceUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stream_health",
			Name:      "source_up",
			Help:      "Whether the source currently has an active stream (1) or not (0).",
		}, []string{"source"}),
		fps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stream_health",
			Name:      "fps_estimate",
			Help:      "Sliding-window frames-per-second estimate.",
		}, []string{"source"}),
		ticksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stream_health",
			Name:      "analysis_ticks_total",
			Help:      "Analysis ticks executed, by aggregate status.",
		}, []string{"source", "status"}),
		conditionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stream_health",
			Name:      "conditions_total",
			Help:      "Detector conditions observed per tick.",
		}, []string{"source", "condition"}),
		restartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stream_health",
			Name:      "restarts_scheduled_total",
			Help:      "Reconnect attempts scheduled by the restart controller.",
		}, []string{"source"}),
	}
}

// SetSourceUp implements monitor.Observer.
func (m *Metrics) SetSourceUp(src frame.Source, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.sourceUp.WithLabelValues(string(src)).Set(v)
}

// ObserveVerdict implements monitor.Observer.
func (m *Metrics) ObserveVerdict(v analysis.Verdict) {
	src := string(v.Source)
	m.fps.WithLabelValues(src).Set(v.FPS)
	m.ticksTotal.WithLabelValues(src, string(v.Status)).Inc()

	if v.Black {
		m.conditionsTotal.WithLabelValues(src, analysis.ConditionBlack).Inc()
	}
	if v.Frozen {
		m.conditionsTotal.WithLabelValues(src, analysis.ConditionFrozen).Inc()
	}
	if v.Idle {
		m.conditionsTotal.WithLabelValues(src, analysis.ConditionIdle).Inc()
	}
	if v.FPSDrop {
		m.conditionsTotal.WithLabelValues(src, "fps_drop").Inc()
	}
}

// IncRestartScheduled implements monitor.Observer.
func (m *Metrics) IncRestartScheduled(src frame.Source) {
	m.restartsTotal.WithLabelValues(string(src)).Inc()
}
