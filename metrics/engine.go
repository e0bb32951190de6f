package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomePanic = "panic"
	OutcomeFault = "fault"
	OutcomeError = "error"
)

// EngineMetrics records guest calls. A nil *EngineMetrics records nothing.
type EngineMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewEngineMetrics(namespace string, reg prometheus.Registerer) (*EngineMetrics, error) {
	m := &EngineMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "guest_calls_total",
			Help:      "Guest calls by entry point and outcome.",
		}, []string{"entrypoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "guest_call_duration_seconds",
			Help:      "Wall time of guest calls including instantiation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"entrypoint"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *EngineMetrics) ObserveCall(entrypoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(entrypoint, outcome).Inc()
	m.duration.WithLabelValues(entrypoint).Observe(d.Seconds())
}

// RegistrySizer reports the number of stored binaries and machines.
type RegistrySizer interface {
	BinaryCount() int
	MachineCount() int
}

// RegisterRegistrySizes exports registry sizes as gauges read on scrape.
func RegisterRegistrySizes(namespace string, reg prometheus.Registerer, sizer RegistrySizer) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "binaries",
			Help:      "Number of loaded binaries.",
		}, func() float64 { return float64(sizer.BinaryCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "machines",
			Help:      "Number of created machines.",
		}, func() float64 { return float64(sizer.MachineCount()) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
