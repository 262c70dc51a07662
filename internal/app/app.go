// Package app собирает зависимости магазина и управляет жизненным циклом
// HTTP API, сервера метрик и фоновых воркеров.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/notification"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/lineitems"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Services — прикладные сервисы, доступные HTTP API и сидеру.
type Services struct {
	Customers *customers.Service
	Products  *products.Service
	Orders    *orders.Service
}

func newServices(deps *runtimeDependencies, imageStore domain.ImageStore, orderMetrics *metrics.OrderMetrics, logger *log.Entry) Services {
	customerSvc := customers.NewService(deps.customerRepo, logger.WithField("layer", "customers"))
	productSvc := products.NewService(deps.productRepo, imageStore, logger.WithField("layer", "products"))
	manager := lineitems.NewManager(deps.lineItemRepo, productSvc, deps.tx, logger.WithField("layer", "line-items"))

	orderSvc := orders.NewService(orders.Dependencies{
		Orders:    deps.orderRepo,
		Customers: deps.customerRepo,
		Lookup:    customerSvc,
		Items:     manager,
		Outbox:    deps.outboxRepo,
		Timeline:  deps.timelineRepo,
		Tx:        deps.tx,
		Metrics:   orderMetrics,
	}, logger.WithField("layer", "orders"))

	return Services{Customers: customerSvc, Products: productSvc, Orders: orderSvc}
}

// Run поднимает приложение и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "app")
	logger.WithFields(version.Get().Fields()).WithField("storage", cfg.StorageDriver).Info("запуск приложения")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}()
	}

	imageBackend, err := initImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}
	if imageBackend.closeFn != nil {
		defer func() { _ = imageBackend.closeFn() }()
	}

	mailer, err := initMailer(cfg, logger)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	services := newServices(deps, imageBackend.store, metrics.NewOrderMetrics(), logger)
	if cfg.Seed {
		if err := Seed(ctx, services, logger.WithField("layer", "seed")); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	dispatcher := notification.NewDispatcher(mailer, cfg.AppName, logger.WithField("layer", "notification"))

	var publisher domain.OutboxPublisher = dispatcher
	workerOptions := []outbox.Option{
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics()),
	}

	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Warn("continuing without kafka, notifications are dispatched in-process")
	}
	defer closeKafkaProducer(kafkaProducer, logger)

	var consumer *kafka.Consumer
	if kafkaProducer != nil {
		consumer, err = startNotificationConsumer(ctx, cfg, kafkaProducer, dispatcher)
		if err != nil {
			return err
		}
		defer stopKafkaConsumer(consumer, logger)

		publisher = kafka.NewOutboxPublisher(kafkaProducer, cfg.KafkaOrderTopic)
		workerOptions = append(workerOptions, outbox.WithDeadLetters(kafka.NewOutboxPublisher(kafkaProducer, cfg.KafkaDLQTopic)))
	}

	outboxWorker := outbox.NewWorker(deps.outboxRepo, publisher, outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		RetryDelay:   cfg.OutboxRetryDelay,
	}, workerOptions...)
	sweeper := idempotency.NewSweeper(deps.idempotencyRepo, idempotency.Config{
		Interval:  cfg.IdempotencyCleanupInterval,
		BatchSize: cfg.IdempotencyCleanupBatchSize,
	}, metrics.NewIdempotencyMetrics(), logger.WithField("layer", "idempotency"))

	healthHandler := healthcheck.NewHandler(version.Get().Version)
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if kafkaProducer != nil {
		healthHandler.RegisterChecker("kafka", healthcheck.NewPingChecker("kafka", kafkaProducer, kafkaPingTimeout))
	}

	api := httpapi.NewServer(services.Customers, services.Products, services.Orders, httpapi.Options{
		Logger:         logger.WithField("layer", "http"),
		Metrics:        metrics.NewHTTPMetrics(),
		Idempotency:    deps.idempotencyRepo,
		IdempotencyTTL: cfg.IdempotencyTTL,
		StorageDir:     imageBackend.localDir,
		ImageURL:       imageBackend.urlFor,
	})

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	apiSrv := &http.Server{Handler: api, ReadHeaderTimeout: 10 * time.Second}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		if err := apiSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		return nil
	})
	g.Go(func() error {
		outboxWorker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// opsHandler обслуживает служебный порт: метрики Prometheus и health probes.
func opsHandler(healthHandler *healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /healthz", healthHandler)
	mux.HandleFunc("GET /livez", healthcheck.LivenessHandler)
	mux.HandleFunc("GET /readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer поднимает opsHandler на addr и гасит его при отмене ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: opsHandler(healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
