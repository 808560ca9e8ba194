package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MDeductions              MetricKey = "deductions_total"
	MDeductionDuration       MetricKey = "deduction_duration_seconds"
	MIdempotentHits          MetricKey = "idempotent_hits_total"
	MLockWaitDuration        MetricKey = "lock_wait_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)
