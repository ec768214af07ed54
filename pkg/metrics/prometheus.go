package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "goshop"

var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Prometheus exposes every series under the goshop namespace with a
// constant service label, so the API and the worker can share a scrape job.
type Prometheus struct {
	orders        *prometheus.CounterVec
	useCases      *prometheus.CounterVec
	useCaseTime   *prometheus.HistogramVec
	commits       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpTime      *prometheus.HistogramVec
	grpcTime      *prometheus.HistogramVec
	duplicates    *prometheus.CounterVec
	firstSeen     *prometheus.CounterVec
	consumed      *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors on reg. It panics when a
// collector is already registered there.
func NewPrometheusMetrics(reg prometheus.Registerer, serviceName string) *Prometheus {
	labels := prometheus.Labels{"service": serviceName}
	f := promauto.With(reg)

	counter := func(subsystem, name, help string, by ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, by)
	}
	histogram := func(subsystem, name, help string, buckets []float64, by ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			Buckets:     buckets,
			ConstLabels: labels,
		}, by)
	}

	m := &Prometheus{
		orders:        counter("order", "created_total", "Order creation attempts by outcome.", "outcome"),
		useCases:      counter("usecase", "executions_total", "Use case executions by status.", "use_case", "status"),
		useCaseTime:   histogram("usecase", "duration_seconds", "Use case latency.", latencyBuckets, "use_case", "status"),
		commits:       counter("unit_of_work", "commits_total", "Unit of work commits by outcome.", "outcome"),
		notifications: counter("notification", "deliveries_total", "Change notifications by subscriber and status.", "subscriber", "status"),
		httpTime:      histogram("http", "request_duration_seconds", "HTTP request latency by route.", latencyBuckets, "method", "path", "status_code"),
		grpcTime:      histogram("grpc", "request_duration_seconds", "gRPC request latency.", prometheus.DefBuckets, "grpc_service", "grpc_method", "status_code"),
		duplicates:    counter("idempotency", "duplicates_total", "Requests or events rejected as duplicates.", "scope"),
		firstSeen:     counter("idempotency", "first_seen_total", "Requests or events seen for the first time.", "scope"),
		consumed:      counter("events", "consumed_total", "Broker messages by settlement.", "status"),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (p *Prometheus) RecordOrderCreated(outcome string) {
	p.orders.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordUseCaseExecution(useCase string, success bool, duration time.Duration) {
	status := "failure"
	if success {
		status = "success"
	}
	p.useCases.WithLabelValues(useCase, status).Inc()
	p.useCaseTime.WithLabelValues(useCase, status).Observe(duration.Seconds())
}

func (p *Prometheus) RecordCommit(outcome string) { p.commits.WithLabelValues(outcome).Inc() }

func (p *Prometheus) RecordNotification(subscriber, status string) {
	p.notifications.WithLabelValues(subscriber, status).Inc()
}

func (p *Prometheus) ObserveHTTPRequestDuration(method, path, code string, seconds float64) {
	p.httpTime.WithLabelValues(method, path, code).Observe(seconds)
}

func (p *Prometheus) ObserveGRPCRequestDuration(service, method, code string, seconds float64) {
	p.grpcTime.WithLabelValues(service, method, code).Observe(seconds)
}

func (p *Prometheus) IncIdempotencyHit(scope string)  { p.duplicates.WithLabelValues(scope).Inc() }
func (p *Prometheus) IncIdempotencyMiss(scope string) { p.firstSeen.WithLabelValues(scope).Inc() }
func (p *Prometheus) IncEventsConsumed(status string) { p.consumed.WithLabelValues(status).Inc() }

var _ Metrics = (*Prometheus)(nil)
