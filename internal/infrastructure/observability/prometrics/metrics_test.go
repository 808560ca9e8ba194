package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

func TestCounter_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "stock", "")

	c1 := r.Counter("deductions_total", "help", "outcome")
	c2 := r.Counter("deductions_total", "help", "outcome")

	c1.Add(1, observability.L("outcome", "success"))
	c2.Bind(observability.L("outcome", "success")).Add(2)
	c2.Add(1, observability.L("outcome", "failure"))

	n, err := testutil.GatherAndCount(reg, "stock_deductions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")

	value := gatherCounter(t, reg, "stock_deductions_total", "success")
	assert.Equal(t, 3.0, value)
}

func TestHistogram_DefaultBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "stock", "")

	h := r.Histogram("lock_wait_duration_seconds", "help", nil, "outcome")
	h.Observe(0.01, observability.L("outcome", "acquired"))
	h.Bind(observability.L("outcome", "acquired")).Observe(0.02)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	hist := families[0].GetMetric()[0].GetHistogram()
	assert.EqualValues(t, 2, hist.GetSampleCount())
	assert.Len(t, hist.GetBucket(), len(prometheus.DefBuckets))
}

func TestInstruments_CoverMetricKeys(t *testing.T) {
	counters, histograms := Instruments(New(prometheus.NewRegistry(), "stock", ""))

	for _, key := range []observability.MetricKey{
		observability.MUsecaseRequests,
		observability.MDeductions,
		observability.MIdempotentHits,
		observability.MExternalRequests,
	} {
		assert.Contains(t, counters, key)
	}
	for _, key := range []observability.MetricKey{
		observability.MUsecaseDuration,
		observability.MDeductionDuration,
		observability.MLockWaitDuration,
		observability.MExternalRequestDuration,
	} {
		assert.Contains(t, histograms, key)
	}
}

func gatherCounter(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("series %s{outcome=%q} not found", name, outcome)
	return 0
}
