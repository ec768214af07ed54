package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/DioGolang/GoShop/configs"
	"github.com/DioGolang/GoShop/internal/infra/event"
	"github.com/DioGolang/GoShop/internal/infra/storage"
	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
	pkgotel "github.com/DioGolang/GoShop/pkg/otel"
)

const (
	serviceName = "goshop-worker"
	version     = "1.0.0"
	handlerName = "low-stock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configs.LoadConfig(".")
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}
	if cfg.RedisAddr() == "" {
		return errors.New("REDIS_HOST is required")
	}
	log := logger.NewLogger(serviceName, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OtelCollectorAddr != "" {
		shutdown, err := pkgotel.InitProvider(ctx, pkgotel.Config{
			ServiceName:   serviceName,
			Version:       version,
			Environment:   cfg.AppEnv,
			CollectorAddr: cfg.OtelCollectorAddr,
		})
		if err != nil {
			return err
		}
		defer shutdown()
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg, serviceName)

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	rdb, err := storage.Dial(ctx, cfg.RedisHost, cfg.RedisPort)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// a malformed message must not open the breaker
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    handlerName,
		Timeout: 30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, event.ErrPermanent)
		},
	})

	h := event.NewLowStockHandler(log, cfg.LowStockThreshold)
	h = event.WrapResilientConsumer(m, log, handlerName, 5*time.Second, cb, h)
	h = event.WrapExponentialBackoff(log, m, handlerName, event.Backoff{
		Retries: 3,
		Base:    100 * time.Millisecond,
		Max:     2 * time.Second,
	}, h)
	h = event.WrapIdempotency(log, m, rdb, handlerName, cfg.IdempotencyTTL, h)

	consumer := event.NewConsumer(conn, h, log, m)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Start(gctx, event.ProductsRoutingKey)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info(ctx, "Worker started", logger.String("queue", event.ProductsRoutingKey))
	return g.Wait()
}
