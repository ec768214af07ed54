package handler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthRabbit "github.com/hellofresh/health-go/v5/checks/rabbitmq"
)

// Pinger is satisfied by the Redis adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthOption adds one dependency check. Options given a nil dependency
// add nothing, so callers can pass every option unconditionally.
type HealthOption func(checks *[]health.Config)

// WithCheck registers a critical check that fails when fn returns an error.
func WithCheck(name string, timeout time.Duration, fn func(ctx context.Context) error) HealthOption {
	return func(checks *[]health.Config) {
		*checks = append(*checks, health.Config{
			Name:    name,
			Timeout: timeout,
			Check:   fn,
		})
	}
}

func WithPostgres(db *sql.DB) HealthOption {
	if db == nil {
		return func(*[]health.Config) {}
	}
	return WithCheck("postgres", 5*time.Second, db.PingContext)
}

func WithRedis(rdb Pinger) HealthOption {
	if rdb == nil {
		return func(*[]health.Config) {}
	}
	return WithCheck("redis", 3*time.Second, rdb.Ping)
}

func WithRabbitMQ(dsn string) HealthOption {
	if dsn == "" {
		return func(*[]health.Config) {}
	}
	return WithCheck("rabbitmq", 3*time.Second, healthRabbit.New(healthRabbit.Config{DSN: dsn}))
}

// NewHealth builds a checker serving GET /health from the given options.
func NewHealth(serviceName, version string, opts ...HealthOption) (*health.Health, error) {
	var checks []health.Config
	for _, opt := range opts {
		opt(&checks)
	}

	h, err := health.New(health.WithComponent(health.Component{
		Name:    serviceName,
		Version: version,
	}))
	if err != nil {
		return nil, fmt.Errorf("create health checker: %w", err)
	}
	for _, c := range checks {
		if err := h.Register(c); err != nil {
			return nil, fmt.Errorf("register %s check: %w", c.Name, err)
		}
	}
	return h, nil
}
