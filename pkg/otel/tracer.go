// Package otel wires OpenTelemetry tracing for the API and the worker.
package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const (
	productionSampleRatio = 0.1
	shutdownTimeout       = 15 * time.Second
)

type Config struct {
	ServiceName   string
	Version       string
	Environment   string
	CollectorAddr string
}

func (c Config) resource() (*resource.Resource, error) {
	if c.ServiceName == "" {
		return nil, errors.New("service name is required")
	}
	version := c.Version
	if version == "" {
		version = "dev"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(c.ServiceName),
			semconv.ServiceVersionKey.String(version),
			semconv.DeploymentEnvironmentKey.String(c.Environment),
		),
	)
}

// InitProvider exports spans over OTLP/gRPC and installs the provider and
// the W3C propagators globally. The returned func flushes pending spans.
func InitProvider(ctx context.Context, cfg Config) (func(), error) {
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.CollectorAddr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.Environment)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutCtx); err != nil {
			otel.Handle(err)
		}
	}, nil
}

// sampler keeps every trace outside production. In production it follows
// the parent decision and samples a tenth of new root traces.
func sampler(environment string) sdktrace.Sampler {
	if environment == "production" {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(productionSampleRatio))
	}
	return sdktrace.AlwaysSample()
}
