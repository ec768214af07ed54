package metrics

import "time"

type Metrics interface {
	// Business
	RecordOrderCreated(outcome string)
	RecordUseCaseExecution(useCaseName string, success bool, duration time.Duration)

	// Persistence and notification
	RecordCommit(outcome string)
	RecordNotification(subscriber, status string)

	// Infrastructure (HTTP & gRPC)
	ObserveHTTPRequestDuration(method, path, statusCode string, duration float64)
	ObserveGRPCRequestDuration(service, method, code string, duration float64)

	// Performance and Resilience
	IncIdempotencyHit(scope string)
	IncIdempotencyMiss(scope string)
	IncEventsConsumed(status string)
}
