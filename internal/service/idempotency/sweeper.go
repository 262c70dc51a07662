// Package idempotency удаляет просроченные ключи Idempotency-Key,
// чтобы таблица ответов не росла бесконечно.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Config — параметры очистки.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	return c
}

// SweepResult — итог одного прохода.
type SweepResult struct {
	Deleted int
	Batches int
}

// Sweeper периодически удаляет записи с истёкшим ttl.
type Sweeper struct {
	repo    domain.IdempotencyRepository
	cfg     Config
	metrics *metrics.IdempotencyMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewSweeper создаёт Sweeper. m и logger могут быть nil.
func NewSweeper(repo domain.IdempotencyRepository, cfg Config, m *metrics.IdempotencyMetrics, logger *log.Entry) *Sweeper {
	if logger == nil {
		logger = log.WithField("component", "idempotency-sweeper")
	}
	return &Sweeper{
		repo:    repo,
		cfg:     cfg.normalized(),
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run выполняет Sweep сразу и затем каждые Interval до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("idempotency sweeper is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	result, err := s.Sweep(ctx, s.now())
	if errors.Is(err, context.Canceled) {
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSweep(result.Deleted, err)
	}
	if err != nil {
		s.logger.WithError(err).Warn("idempotency cleanup run failed")
		return
	}
	if result.Deleted > 0 {
		s.logger.WithFields(log.Fields{
			"deleted": result.Deleted,
			"batches": result.Batches,
		}).Info("idempotency cleanup completed")
	}
}

// Sweep удаляет записи с ttl <= before пачками по BatchSize, пока пачка полная.
func (s *Sweeper) Sweep(ctx context.Context, before time.Time) (SweepResult, error) {
	if before.IsZero() {
		before = s.now()
	}

	var result SweepResult
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		deleted, err := s.repo.DeleteExpired(ctx, before, s.cfg.BatchSize)
		if err != nil {
			return result, err
		}
		result.Batches++
		result.Deleted += deleted

		if deleted < s.cfg.BatchSize {
			return result, nil
		}
	}
}
