package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres использует PostgreSQL.
	StorageDriverPostgres = "postgres"

	// MailDriverLog пишет письма в лог.
	MailDriverLog = "log"
	// MailDriverSendGrid отправляет письма через SendGrid.
	MailDriverSendGrid = "sendgrid"

	// ImageDriverLocal хранит изображения на диске.
	ImageDriverLocal = "local"
	// ImageDriverGCS хранит изображения в Google Cloud Storage.
	ImageDriverGCS = "gcs"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	AppName     string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	PostgresMaxConns    int
	PostgresConnMaxLife time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	MailDriver     string
	SendGridAPIKey string
	MailFrom       string

	KafkaBrokers    string
	KafkaOrderTopic string
	KafkaDLQTopic   string
	KafkaGroupID    string

	ImageDriver        string
	ImageDir           string
	GCSBucket          string
	GCSCredentialsFile string

	// Seed заполняет пустое хранилище демонстрационными данными.
	Seed bool
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		AppName:     "Pastry Shop",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		PostgresMaxConns:    25,
		PostgresConnMaxLife: 30 * time.Minute,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  5,
		OutboxRetryDelay:   200 * time.Millisecond,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		MailDriver: MailDriverLog,
		MailFrom:   "orders@pastry.shop",

		KafkaOrderTopic: kafka.TopicOrderEvents,
		KafkaDLQTopic:   kafka.TopicDeadLetterQueue,
		KafkaGroupID:    "storefront-notifications",

		ImageDriver: ImageDriverLocal,
		ImageDir:    "storage",
	}
}

// ApplyEnv переопределяет поля значениями переменных окружения SHOP_*.
// lookup обычно os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SHOP_HTTP_ADDR", &c.HTTPAddr)
	str("SHOP_METRICS_ADDR", &c.MetricsAddr)
	str("SHOP_APP_NAME", &c.AppName)
	str("SHOP_STORAGE_DRIVER", &c.StorageDriver)
	str("SHOP_POSTGRES_DSN", &c.PostgresDSN)
	boolean("SHOP_POSTGRES_AUTO_MIGRATE", &c.PostgresAutoMigrate)
	integer("SHOP_POSTGRES_MAX_CONNS", &c.PostgresMaxConns)
	duration("SHOP_POSTGRES_CONN_MAX_LIFETIME", &c.PostgresConnMaxLife)
	duration("SHOP_OUTBOX_POLL_INTERVAL", &c.OutboxPollInterval)
	integer("SHOP_OUTBOX_BATCH_SIZE", &c.OutboxBatchSize)
	integer("SHOP_OUTBOX_MAX_ATTEMPTS", &c.OutboxMaxAttempts)
	duration("SHOP_OUTBOX_RETRY_DELAY", &c.OutboxRetryDelay)
	duration("SHOP_IDEMPOTENCY_TTL", &c.IdempotencyTTL)
	duration("SHOP_IDEMPOTENCY_CLEANUP_INTERVAL", &c.IdempotencyCleanupInterval)
	integer("SHOP_IDEMPOTENCY_CLEANUP_BATCH_SIZE", &c.IdempotencyCleanupBatchSize)
	str("SHOP_MAIL_DRIVER", &c.MailDriver)
	str("SHOP_SENDGRID_API_KEY", &c.SendGridAPIKey)
	str("SHOP_MAIL_FROM", &c.MailFrom)
	str("KAFKA_BROKERS", &c.KafkaBrokers)
	str("SHOP_KAFKA_ORDER_TOPIC", &c.KafkaOrderTopic)
	str("SHOP_KAFKA_DLQ_TOPIC", &c.KafkaDLQTopic)
	str("SHOP_KAFKA_GROUP_ID", &c.KafkaGroupID)
	str("SHOP_IMAGE_DRIVER", &c.ImageDriver)
	str("SHOP_IMAGE_DIR", &c.ImageDir)
	str("SHOP_GCS_BUCKET", &c.GCSBucket)
	str("SHOP_GCS_CREDENTIALS_FILE", &c.GCSCredentialsFile)
	boolean("SHOP_SEED", &c.Seed)

	return errors.Join(errs...)
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSendGrid:
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("sendgrid api key is required for sendgrid mail driver"))
		}
		if c.MailFrom == "" {
			errs = append(errs, errors.New("mail from address is required for sendgrid mail driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported mail driver %q", c.MailDriver))
	}

	switch c.ImageDriver {
	case ImageDriverLocal:
		if strings.TrimSpace(c.ImageDir) == "" {
			errs = append(errs, errors.New("image dir is required for local image driver"))
		}
	case ImageDriverGCS:
		if strings.TrimSpace(c.GCSBucket) == "" {
			errs = append(errs, errors.New("gcs bucket is required for gcs image driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported image driver %q", c.ImageDriver))
	}

	if c.KafkaBrokers != "" && (c.KafkaOrderTopic == "" || c.KafkaGroupID == "") {
		errs = append(errs, errors.New("kafka order topic and group id are required when kafka brokers are set"))
	}

	return errors.Join(errs...)
}
