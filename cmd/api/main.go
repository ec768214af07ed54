package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/DioGolang/GoShop/configs"
	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/application/usecase/order"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/database"
	"github.com/DioGolang/GoShop/internal/infra/event"
	grpcserver "github.com/DioGolang/GoShop/internal/infra/grpc"
	"github.com/DioGolang/GoShop/internal/infra/memory"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
	"github.com/DioGolang/GoShop/internal/infra/storage"
	"github.com/DioGolang/GoShop/internal/infra/web"
	"github.com/DioGolang/GoShop/internal/infra/web/handler"
	"github.com/DioGolang/GoShop/internal/infra/web/middleware"
	"github.com/DioGolang/GoShop/pkg/events"
	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
	pkgotel "github.com/DioGolang/GoShop/pkg/otel"
)

const (
	serviceName = "goshop-api"
	version     = "1.0.0"
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

	var (
		factory    outbound.UnitOfWorkFactory
		healthOpts []handler.HealthOption
	)
	switch cfg.StorageDriver {
	case configs.StorageMemory:
		log.Warn(ctx, "Using in-memory storage, data is lost on restart")
		factory = memory.NewUnitOfWorkFactory(memory.NewStore())
	default:
		db, err := database.Open(ctx, database.Config{
			Driver:   cfg.DBDriver,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		factory = database.NewUnitOfWorkFactory(db)
		healthOpts = append(healthOpts, handler.WithPostgres(db))
	}
	factory = &persistence.MeteredFactory{Next: factory, Metrics: m}

	registry := events.NewRegistry[entity.ProductChanged](
		func(ctx context.Context, subscriber string, err error) {
			if err != nil {
				m.RecordNotification(subscriber, "failed")
				log.Warn(ctx, "Product change subscriber failed",
					logger.String("subscriber", subscriber),
					logger.WithError(err),
				)
				return
			}
			m.RecordNotification(subscriber, "delivered")
		},
	)
	registry.Subscribe("log", func(ctx context.Context, e entity.ProductChanged) error {
		log.Info(ctx, "Product changed",
			logger.Int64("product_id", e.ProductID),
			logger.String("change", string(e.Change)),
			logger.Int("stock", e.Stock),
		)
		return nil
	})

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Warn(ctx, "Broker unreachable, product changes are not published", logger.WithError(err))
		} else {
			defer conn.Close()
			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("open amqp channel: %w", err)
			}
			defer ch.Close()
			publisher := event.NewProductPublisher(ch, gobreaker.Settings{Timeout: 30 * time.Second})
			registry.Subscribe("amqp", publisher.Publish)
			healthOpts = append(healthOpts, handler.WithRabbitMQ(cfg.AMQPURL))
		}
	}

	var idempotency middleware.IdempotencyStore
	if cfg.RedisAddr() != "" {
		rdb, err := storage.Dial(ctx, cfg.RedisHost, cfg.RedisPort)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idempotency = rdb
		healthOpts = append(healthOpts, handler.WithRedis(rdb))
	}

	var createOrder order.CreateUseCase = order.NewCreateOrderUseCase(factory, registry, log)
	createOrder = &order.CreateOrderRetryDecorator{
		Next:        createOrder,
		Logger:      log,
		MaxAttempts: cfg.OrderRetryAttempts,
		BaseWait:    cfg.OrderRetryBaseWait,
	}
	createOrder = &order.CreateOrderMetricsDecorator{Next: createOrder, Metrics: m}

	checker, err := handler.NewHealth(serviceName, version, healthOpts...)
	if err != nil {
		return err
	}

	router := web.NewRouter(web.RouterConfig{
		ServiceName: serviceName,
		Logger:      log,
		Metrics:     m,
		Factory:     factory,
		Notifier:    registry,
		CreateOrder: createOrder,
		RateLimiter: middleware.NewClientLimiter(ctx, middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		}),
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Health:         checker.Handler(),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.WebServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpcserver.NewServer(m, log, func(ctx context.Context) error {
		if c := checker.Measure(ctx); c.Status != health.StatusOK {
			return fmt.Errorf("health status %s: %v", c.Status, c.Failures)
		}
		return nil
	}, 15*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "HTTP server listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info(gctx, "gRPC server listening", logger.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		grpcServer.Watch(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}
