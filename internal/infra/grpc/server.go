// Package grpc serves the standard gRPC health service. Its status follows
// a probe of the service's dependencies.
package grpc

import (
	"context"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

// Probe returns nil while the service can serve traffic.
type Probe func(ctx context.Context) error

type Server struct {
	grpc     *grpclib.Server
	health   *health.Server
	probe    Probe
	interval time.Duration
	log      logger.Logger
}

func NewServer(m metrics.Metrics, log logger.Logger, probe Probe, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	gs := grpclib.NewServer(
		grpclib.StatsHandler(otelgrpc.NewServerHandler()),
		grpclib.ChainUnaryInterceptor(UnaryMetricsInterceptor(m)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{grpc: gs, health: hs, probe: probe, interval: interval, log: log}
}

// Watch runs the probe every interval and publishes the result as the
// overall serving status until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	s.check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		if err := s.probe(ctx); err != nil {
			s.log.Warn(ctx, "Health probe failed", logger.WithError(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop reports NOT_SERVING to every watcher, then waits for
// in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func UnaryMetricsInterceptor(m metrics.Metrics) grpclib.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		service, method := splitMethod(info.FullMethod)
		m.ObserveGRPCRequestDuration(service, method, status.Code(err).String(), time.Since(start).Seconds())
		return resp, err
	}
}

// splitMethod turns "/pkg.Service/Method" into its two parts.
func splitMethod(full string) (string, string) {
	full = strings.TrimPrefix(full, "/")
	service, method, ok := strings.Cut(full, "/")
	if !ok {
		return "unknown", full
	}
	return service, method
}
