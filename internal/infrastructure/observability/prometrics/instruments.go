package prometrics

import "github.com/Zhima-Mochi/minishop-stock/internal/observability"

// Instruments registers every metric the stock pipeline records and returns them
// keyed for observability.New.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MDeductions: r.Counter(string(observability.MDeductions),
			"Audited deductions by outcome.", "outcome"),
		observability.MIdempotentHits: r.Counter(string(observability.MIdempotentHits),
			"Deductions short-circuited as repeats of an earlier request id."),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests),
			"Calls to collaborators outside the pipeline.", "peer", "endpoint", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", nil, "use_case"),
		observability.MDeductionDuration: r.Histogram(string(observability.MDeductionDuration),
			"Latency of audited deductions in seconds.", nil, "outcome"),
		observability.MLockWaitDuration: r.Histogram(string(observability.MLockWaitDuration),
			"Time spent waiting for a per-key deduction lock.", nil, "outcome"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration),
			"Latency of calls to collaborators outside the pipeline.", nil, "peer", "endpoint"),
	}
	return counters, histograms
}
