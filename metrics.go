package compositefs

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
	resultMiss     = "miss"
)

// metrics is nil-safe; a CompositeStorage without WithMetrics records nothing
type metrics struct {
	mounts     prometheus.Gauge
	operations *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		mounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "compositefs",
			Name:      "mounts",
			Help:      "Number of storages currently mounted.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compositefs",
			Name:      "operations_total",
			Help:      "Operations routed through the composite storage.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.mounts, m.operations)
	return m
}

func (m *metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *metrics) addMounts(delta float64) {
	if m == nil {
		return
	}
	m.mounts.Add(delta)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrNotMounted):
		return resultNotFound
	default:
		return resultError
	}
}
