package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter from the default registry; 0 when absent.
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCountersAccumulate(t *testing.T) {
	labels := map[string]string{"kind": KindDetail, "engine": "http", "outcome": "ok"}
	before := counterValue(t, "smartpick_pages_fetched_total", labels)
	PagesFetched.WithLabelValues(KindDetail, "http", "ok").Inc()
	require.Equal(t, before+1, counterValue(t, "smartpick_pages_fetched_total", labels))

	before = counterValue(t, "smartpick_missing_fields_total", map[string]string{"field": "ram"})
	MissingFields.WithLabelValues("ram").Add(2)
	require.Equal(t, before+2, counterValue(t, "smartpick_missing_fields_total", map[string]string{"field": "ram"}))
}
