package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MessageHandler обрабатывает одно сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// OutboxHandler разворачивает Envelope и передаёт сообщение outbox дальше,
// например в notification.Dispatcher.
func OutboxHandler(publisher domain.OutboxPublisher) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		envelope, err := ParseEnvelope(message)
		if err != nil {
			return err
		}
		return publisher.Publish(ctx, envelope.OutboxMessage())
	}
}

// ConsumerConfig — параметры consumer group.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	DeadLetterTopic string
	MaxAttempts     int
	RetryDelay      time.Duration
}

// DeadLetterRecord — тело сообщения в dead letter topic.
type DeadLetterRecord struct {
	Topic     string    `json:"original_topic"`
	Partition int32     `json:"original_partition"`
	Offset    int64     `json:"original_offset"`
	Key       string    `json:"original_key"`
	Value     string    `json:"original_value"`
	Error     string    `json:"error_message"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// Consumer читает topic через consumer group. Сообщение помечается прочитанным,
// только когда handler отработал или сообщение ушло в dead letter topic.
type Consumer struct {
	group       sarama.ConsumerGroup
	cfg         ConsumerConfig
	handler     MessageHandler
	deadLetters *Producer
	logger      *log.Entry
	wg          sync.WaitGroup
}

// NewConsumer подключается к consumer group. deadLetters может быть nil:
// тогда необработанное сообщение остаётся непомеченным и будет перечитано.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, deadLetters *Producer) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, cfg, handler, deadLetters), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handler MessageHandler, deadLetters *Producer) *Consumer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = TopicDeadLetterQueue
	}
	return &Consumer{
		group:       group,
		cfg:         cfg,
		handler:     handler,
		deadLetters: deadLetters,
		logger:      log.WithField("component", "kafka-consumer"),
	}
}

// Start запускает чтение в фоне до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		// Consume завершается при каждом rebalance, поэтому вызывается в цикле.
		for ctx.Err() == nil {
			if err := c.group.Consume(ctx, c.cfg.Topics, c); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.WithError(err).Error("error from consumer")
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.cfg.Topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает consumer group и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает сообщения одной partition.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			logger := c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			})
			if err := c.process(session.Context(), message); err != nil {
				logger.WithError(err).Error("message left unacknowledged")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// process делает оставшиеся попытки в процессе; после последней неудачи
// сообщение уходит в dead letter topic.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	previous := retryCount(message)
	remaining := max(c.cfg.MaxAttempts-previous, 1)

	var err error
	for attempt := 1; attempt <= remaining; attempt++ {
		if err = c.handler(ctx, message); err == nil {
			return nil
		}

		c.logger.WithError(err).WithFields(log.Fields{
			"topic":        message.Topic,
			"attempt":      previous + attempt,
			"max_attempts": c.cfg.MaxAttempts,
		}).Warn("message processing failed")

		if attempt == remaining || c.cfg.RetryDelay == 0 {
			continue
		}
		timer := time.NewTimer(c.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.deadLetters == nil {
		return err
	}
	if dlqErr := c.sendDeadLetter(ctx, message, previous+remaining, err); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	c.logger.WithFields(log.Fields{
		"topic":    message.Topic,
		"attempts": previous + remaining,
	}).Info("message sent to DLQ after max attempts")
	return nil
}

func (c *Consumer) sendDeadLetter(ctx context.Context, message *sarama.ConsumerMessage, attempts int, cause error) error {
	record := DeadLetterRecord{
		Topic:     message.Topic,
		Partition: message.Partition,
		Offset:    message.Offset,
		Key:       string(message.Key),
		Value:     string(message.Value),
		Error:     cause.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	}

	return c.deadLetters.SendJSON(ctx, c.cfg.DeadLetterTopic, record.Key, record,
		sarama.RecordHeader{Key: []byte(HeaderOriginalTopic), Value: []byte(record.Topic)},
		sarama.RecordHeader{Key: []byte(HeaderErrorMessage), Value: []byte(record.Error)},
		sarama.RecordHeader{Key: []byte(HeaderFailedAt), Value: []byte(record.FailedAt.Format(time.RFC3339))},
		sarama.RecordHeader{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(attempts))},
	)
}

// retryCount читает число предыдущих попыток из заголовка; мусор считается нулём.
func retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if header == nil || string(header.Key) != HeaderRetryCount {
			continue
		}
		if count, err := strconv.Atoi(string(header.Value)); err == nil && count > 0 {
			return count
		}
	}
	return 0
}
