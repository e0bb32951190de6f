package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records host classification and error responses of the API.
// A nil *HTTPMetrics records nothing.
type HTTPMetrics struct {
	resolutions *prometheus.CounterVec
	problems    *prometheus.CounterVec
}

func NewHTTPMetrics(namespace string, reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "host_resolutions_total",
			Help:      "Inbound requests by resolved host kind.",
		}, []string{"kind"}),
		problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "problems_total",
			Help:      "Error responses by HTTP status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{m.resolutions, m.problems} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *HTTPMetrics) ObserveResolution(kind string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind).Inc()
}

func (m *HTTPMetrics) ObserveProblem(status int) {
	if m == nil {
		return
	}
	m.problems.WithLabelValues(strconv.Itoa(status)).Inc()
}
