package engine

// metrics.go is a thin abstraction over Prometheus so the engine can be used
// with or without metrics, following the teacher's pkg/metrics.go split
// exactly: a metricsSink interface, a no-op implementation used by default,
// and a Prometheus implementation activated by WithMetrics.
//
// ┌────────────────────────────────────────┐
// │ Metric                                 │ Type │ Labels │
// ├────────────────────────────────────────┼──────┼────────┤
// │ assoc_engine_stage_invocations_total   │ Ctr  │ stage  │
// │ assoc_engine_capacity_exceeded_total   │ Ctr  │ pool   │
// │ assoc_engine_pool_live_entries         │ Gge  │ pool   │
// └────────────────────────────────────────┘

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricsSink interface {
	incStage(stage string)
	incCapacityExceeded(pool string, n uint64)
	setPoolLive(pool string, n float64)
}

type noopMetrics struct{}

func (noopMetrics) incStage(string)                  {}
func (noopMetrics) incCapacityExceeded(string, uint64) {}
func (noopMetrics) setPoolLive(string, float64)      {}

type promMetrics struct {
	stages            *prometheus.CounterVec
	capacityExceeded  *prometheus.CounterVec
	poolLive          *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assoc_engine",
			Name:      "stage_invocations_total",
			Help:      "Number of times each pipeline stage ran.",
		}, []string{"stage"}),
		capacityExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assoc_engine",
			Name:      "capacity_exceeded_total",
			Help:      "Number of find-or-create calls that returned the sentinel index.",
		}, []string{"pool"}),
		poolLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "assoc_engine",
			Name:      "pool_live_entries",
			Help:      "Live entry count per pool after the last stage that touched it.",
		}, []string{"pool"}),
	}
	reg.MustRegister(pm.stages, pm.capacityExceeded, pm.poolLive)
	return pm
}

func (m *promMetrics) incStage(stage string) {
	m.stages.WithLabelValues(stage).Inc()
}
func (m *promMetrics) incCapacityExceeded(pool string, n uint64) {
	m.capacityExceeded.WithLabelValues(pool).Add(float64(n))
}
func (m *promMetrics) setPoolLive(pool string, n float64) {
	m.poolLive.WithLabelValues(pool).Set(n)
}

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
