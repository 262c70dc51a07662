package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/notification"
	"github.com/vladislavdragonenkov/storefront/internal/storage/images"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const storagePingTimeout = 2 * time.Second

// runtimeDependencies — репозитории и транзакции выбранного драйвера хранения.
type runtimeDependencies struct {
	customerRepo    domain.CustomerRepository
	productRepo     domain.ProductRepository
	orderRepo       domain.OrderRepository
	lineItemRepo    domain.LineItemRepository
	outboxRepo      domain.OutboxRepository
	timelineRepo    domain.TimelineRepository
	idempotencyRepo domain.IdempotencyRepository
	tx              domain.Transactor

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		store := memory.NewStore()
		return &runtimeDependencies{
			customerRepo:    memory.NewCustomerRepository(store),
			productRepo:     memory.NewProductRepository(store),
			orderRepo:       memory.NewOrderRepository(store),
			lineItemRepo:    memory.NewLineItemRepository(store),
			outboxRepo:      memory.NewOutboxRepository(store),
			timelineRepo:    memory.NewTimelineRepository(),
			idempotencyRepo: memory.NewIdempotencyRepository(),
			tx:              store,
			storageChecker:  healthcheck.NewPingChecker("storage", store, storagePingTimeout),
		}, nil
	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres dsn is required for postgres storage")
		}

		store, err := postgres.OpenWithPool(ctx, cfg.PostgresDSN, postgres.PoolConfig{
			MaxOpenConns:    cfg.PostgresMaxConns,
			ConnMaxLifetime: cfg.PostgresConnMaxLife,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := metrics.RegisterDBStats(nil, store.DB(), "storefront"); err != nil {
			logger.WithError(err).Warn("failed to register postgres pool metrics")
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("ensure postgres schema: %w", err)
			}
		}
		logger.Info("postgres storage initialized")

		return &runtimeDependencies{
			customerRepo:    postgres.NewCustomerRepository(store),
			productRepo:     postgres.NewProductRepository(store),
			orderRepo:       postgres.NewOrderRepository(store),
			lineItemRepo:    postgres.NewLineItemRepository(store),
			outboxRepo:      postgres.NewOutboxRepository(store),
			timelineRepo:    postgres.NewTimelineRepository(store),
			idempotencyRepo: postgres.NewIdempotencyRepository(store),
			tx:              store,
			storageChecker:  healthcheck.NewPingChecker("storage", store, storagePingTimeout),
			closeFn:         store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// imageBackend — хранилище изображений и способ построить их публичный URL.
type imageBackend struct {
	store    domain.ImageStore
	localDir string
	urlFor   func(string) string
	closeFn  func() error
}

func initImageStore(ctx context.Context, cfg Config) (*imageBackend, error) {
	switch cfg.ImageDriver {
	case "", ImageDriverLocal:
		store, err := images.NewLocalStore(cfg.ImageDir)
		if err != nil {
			return nil, err
		}
		return &imageBackend{store: store, localDir: store.Root()}, nil
	case ImageDriverGCS:
		client, err := images.NewGCSClient(ctx, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		store, err := images.NewGCSStore(client, cfg.GCSBucket)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &imageBackend{store: store, urlFor: store.PublicURL, closeFn: store.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported image driver %q", cfg.ImageDriver)
	}
}

func initMailer(cfg Config, logger *log.Entry) (notification.Mailer, error) {
	switch cfg.MailDriver {
	case "", MailDriverLog:
		return notification.NewLogMailer(logger.WithField("mailer", "log")), nil
	case MailDriverSendGrid:
		mailer, err := notification.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.AppName, logger.WithField("mailer", "sendgrid"))
		if err != nil {
			return nil, err
		}
		breaker := notification.NewCircuitBreaker(5, 30*time.Second, logger.WithField("component", "mail-breaker"))
		guarded := notification.NewBreakerMailer(mailer, breaker)
		return notification.NewRetryingMailer(guarded, notification.DefaultRetryConfig(), logger.WithField("component", "mail-retry")), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}
}
