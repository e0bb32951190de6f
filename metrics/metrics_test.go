package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fixedSizer struct{ binaries, machines int }

func (s fixedSizer) BinaryCount() int  { return s.binaries }
func (s fixedSizer) MachineCount() int { return s.machines }

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewEngineMetrics("carol", reg)
	require.NoError(t, err)

	m.ObserveCall("activate", OutcomeOK, time.Millisecond)
	m.ObserveCall("activate", OutcomeOK, time.Millisecond)
	m.ObserveCall("activate", OutcomePanic, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("activate", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("activate", OutcomePanic)))

	var nilMetrics *EngineMetrics
	nilMetrics.ObserveCall("activate", OutcomeOK, time.Second)
}

func TestRegistrySizes(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterRegistrySizes("carol", reg, fixedSizer{binaries: 2, machines: 5}))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	require.Equal(t, 2.0, values["carol_registry_binaries"])
	require.Equal(t, 5.0, values["carol_registry_machines"])
}

func TestMetricsServer(t *testing.T) {
	srv, err := New("carol", "127.0.0.1:0")
	require.NoError(t, err)
	require.Equal(t, "carol", srv.Namespace())

	_, err = NewEngineMetrics(srv.Namespace(), srv.Registerer())
	require.NoError(t, err)
	_, err = srv.Gatherer().Gather()
	require.NoError(t, err)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics("carol", reg)
	require.NoError(t, err)

	m.ObserveResolution("machine")
	m.ObserveResolution("machine")
	m.ObserveProblem(421)

	require.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("machine")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.problems.WithLabelValues("421")))

	var nilMetrics *HTTPMetrics
	nilMetrics.ObserveResolution("api")
	nilMetrics.ObserveProblem(500)
}
