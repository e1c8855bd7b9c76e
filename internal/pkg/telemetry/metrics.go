package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Authentication funnel
	MetricVerificationCompletion = "auth.verification_completion_rate"
	MetricDeliveryRate           = "auth.email_delivery_rate"
	MetricAuthErrorRate          = "auth.error_rate"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricListingsCreated = "business.listings_created"
	MetricAlertsEmitted   = "business.alerts_emitted"
)
