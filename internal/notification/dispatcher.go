package notification

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultDedupSize = 4096

// Dispatcher превращает сообщения outbox о созданных заказах в письма.
// Реализует domain.OutboxPublisher, поэтому подключается к outbox worker
// напрямую или через Kafka consumer.
type Dispatcher struct {
	mailer  Mailer
	appName string
	sent    *lru.Cache[string, struct{}]
	logger  *log.Entry
}

// NewDispatcher создаёт Dispatcher. appName подставляется в подпись письма.
func NewDispatcher(mailer Mailer, appName string, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.WithField("component", "notification-dispatcher")
	}
	sent, err := lru.New[string, struct{}](defaultDedupSize)
	if err != nil {
		panic(fmt.Sprintf("create dedup cache: %v", err))
	}
	return &Dispatcher{
		mailer:  mailer,
		appName: appName,
		sent:    sent,
		logger:  logger,
	}
}

// Publish отправляет письмо для order.placed. Прочие типы событий пропускаются.
// Повторная доставка сообщения с тем же ID письмо не дублирует.
func (d *Dispatcher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.EventType != domain.EventTypeOrderPlaced {
		d.logger.WithField("event_type", msg.EventType).Debug("skip outbox message without notification")
		return nil
	}
	if msg.ID != "" && d.sent.Contains(msg.ID) {
		d.logger.WithField("message_id", msg.ID).Debug("notification already sent")
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode order placed event: %w", err)
	}
	if event.CustomerEmail == "" {
		return fmt.Errorf("order %d: client email is empty", event.OrderID)
	}

	message, err := RenderOrderSummary(d.appName, event)
	if err != nil {
		return fmt.Errorf("render order summary: %w", err)
	}

	if err := d.mailer.Send(ctx, message); err != nil {
		d.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"to":       event.CustomerEmail,
		}).Warn("order notification delivery failed")
		return fmt.Errorf("send order notification: %w", err)
	}

	if msg.ID != "" {
		d.sent.Add(msg.ID, struct{}{})
	}
	d.logger.WithFields(log.Fields{
		"order_id": event.OrderID,
		"to":       event.CustomerEmail,
	}).Info("order notification sent")
	return nil
}
