package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	kafkaClientID    = "storefront"
	kafkaPingTimeout = 3 * time.Second
)

// splitBrokers разбирает список брокеров через запятую, пропуская пустые элементы.
func splitBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer, если brokers не пустой.
// Пустой список даёт nil, nil: приложение работает без Kafka.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, kafkaClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// startNotificationConsumer подписывает Dispatcher на topic заказов. Сообщения,
// которые не удалось обработать, уходят в DLQ через тот же producer.
func startNotificationConsumer(ctx context.Context, cfg Config, producer *kafka.Producer, dispatcher domain.OutboxPublisher) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         splitBrokers(cfg.KafkaBrokers),
		GroupID:         cfg.KafkaGroupID,
		Topics:          []string{cfg.KafkaOrderTopic},
		DeadLetterTopic: cfg.KafkaDLQTopic,
		MaxAttempts:     cfg.OutboxMaxAttempts,
		RetryDelay:      cfg.OutboxRetryDelay,
	}, kafka.OutboxHandler(dispatcher), producer)
	if err != nil {
		return nil, fmt.Errorf("create notification consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Stop()
		return nil, fmt.Errorf("start notification consumer: %w", err)
	}
	return consumer, nil
}

// closeKafkaProducer закрывает Kafka producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

func stopKafkaConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}
