// Package orders собирает заказ из строки заказа, клиента и позиций
// и управляет его жизненным циклом Active ⇄ Deleted.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/lineitems"
)

const clientField = "client_id"

// Input — тело запроса создания или изменения заказа.
// Products == nil означает, что позиции не переданы (только для Update).
type Input struct {
	ClientID *int64               `json:"client_id"`
	Products []domain.ItemRequest `json:"products"`
}

// Dependencies — коллабораторы сервиса. Orders, Customers, Outbox и Items
// должны работать поверх того же хранилища, что и Tx.
type Dependencies struct {
	Orders    domain.OrderRepository
	Customers domain.CustomerRepository
	Lookup    domain.CustomerLookup
	Items     *lineitems.Manager
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	Tx        domain.Transactor
	Metrics   *metrics.OrderMetrics
}

// Service — сервис агрегата заказа.
type Service struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	lookup    domain.CustomerLookup
	items     *lineitems.Manager
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	tx        domain.Transactor
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
}

// NewService создаёт сервис. Lookup по умолчанию — видимые клиенты из Customers.
func NewService(deps Dependencies, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	lookup := deps.Lookup
	if lookup == nil {
		lookup = visibleCustomers{repo: deps.Customers}
	}
	return &Service{
		orders:    deps.Orders,
		customers: deps.Customers,
		lookup:    lookup,
		items:     deps.Items,
		outbox:    deps.Outbox,
		timeline:  deps.Timeline,
		tx:        deps.Tx,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// CreateOrder сохраняет заказ с позициями и ставит order.placed в outbox
// в той же транзакции. Уведомление уходит только после коммита.
func (s *Service) CreateOrder(ctx context.Context, in Input) (aggregate domain.OrderAggregate, err error) {
	started := time.Now()
	if s.metrics != nil {
		s.metrics.CreateStarted()
		defer func() {
			s.metrics.CreateFinished()
			s.metrics.RecordOperation(metrics.OperationCreate, err, time.Since(started))
		}()
	}

	verr := domain.NewValidationError()
	if in.ClientID == nil {
		verr.Add(clientField, "The client id field is required.")
	} else if *in.ClientID <= 0 {
		verr.Add(clientField, "The client id field must be a positive integer.")
	}
	verr.Merge(domain.ValidateItems(lineitems.ItemsField, in.Products))
	if err := verr.Err(); err != nil {
		return domain.OrderAggregate{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.lookup.Resolve(ctx, *in.ClientID)
		if err != nil {
			return err
		}

		order, err := s.orders.Create(ctx, domain.Order{CustomerID: customer.ID})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := s.items.Attach(ctx, order.ID, in.Products); err != nil {
			return err
		}

		aggregate, err = s.assemble(ctx, order)
		if err != nil {
			return err
		}

		return s.enqueuePlaced(ctx, aggregate)
	})
	if err != nil {
		return domain.OrderAggregate{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
		s.metrics.RecordOrderPlaced(aggregate.Total(), len(aggregate.Items))
	}
	s.appendTimeline(ctx, aggregate.Order.ID, domain.TimelineOrderCreated, "order created")
	s.logger.WithFields(log.Fields{
		"order_id":  aggregate.Order.ID,
		"client_id": aggregate.Customer.ID,
		"items":     len(aggregate.Items),
		"total":     aggregate.Total().StringFixed(2),
	}).Info("order created")

	return aggregate, nil
}

// UpdateOrder меняет клиента и/или набор позиций видимого заказа.
// Уведомление при изменении не отправляется.
func (s *Service) UpdateOrder(ctx context.Context, id int64, in Input) (aggregate domain.OrderAggregate, err error) {
	started := time.Now()
	if s.metrics != nil {
		defer func() {
			s.metrics.RecordOperation(metrics.OperationUpdate, err, time.Since(started))
		}()
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.OrderAggregate{}, err
	}

	verr := domain.NewValidationError()
	if in.ClientID != nil && *in.ClientID <= 0 {
		verr.Add(clientField, "The client id field must be a positive integer.")
	}
	if in.Products != nil {
		verr.Merge(domain.ValidateItems(lineitems.ItemsField, in.Products))
	}
	if err := verr.Err(); err != nil {
		return domain.OrderAggregate{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Строка заказа блокируется до коммита: удаление или другое изменение,
		// завершившееся после проверки выше, здесь уже видно.
		locked, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		order = locked

		if in.ClientID != nil {
			customer, err := s.lookup.Resolve(ctx, *in.ClientID)
			if err != nil {
				return err
			}
			order.CustomerID = customer.ID
			if order, err = s.orders.Update(ctx, order); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
		}

		if in.Products != nil {
			if err := s.items.Replace(ctx, order.ID, in.Products); err != nil {
				return err
			}
		}

		aggregate, err = s.assemble(ctx, order)
		return err
	})
	if err != nil {
		return domain.OrderAggregate{}, err
	}

	s.appendTimeline(ctx, order.ID, domain.TimelineOrderUpdated, "order updated")
	s.logger.WithField("order_id", order.ID).Info("order updated")
	return aggregate, nil
}

// ShowOrder возвращает видимый заказ, собранный целиком.
func (s *Service) ShowOrder(ctx context.Context, id int64) (domain.OrderAggregate, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.OrderAggregate{}, err
	}
	return s.assemble(ctx, order)
}

// ListOrders возвращает все не удалённые заказы с клиентами и позициями.
func (s *Service) ListOrders(ctx context.Context) ([]domain.OrderAggregate, error) {
	list, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.OrderAggregate, 0, len(list))
	for _, order := range list {
		aggregate, err := s.assemble(ctx, order)
		if err != nil {
			return nil, err
		}
		result = append(result, aggregate)
	}
	return result, nil
}

// DeleteOrder помечает заказ удалённым. Позиции не трогаются.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (err error) {
	started := time.Now()
	if s.metrics != nil {
		defer func() {
			s.metrics.RecordOperation(metrics.OperationDelete, err, time.Since(started))
		}()
	}

	if err = s.orders.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.appendTimeline(ctx, id, domain.TimelineOrderDeleted, "order deleted")
	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}

// RestoreOrder снимает отметку удаления; позиции возвращаются в исходном виде.
func (s *Service) RestoreOrder(ctx context.Context, id int64) (err error) {
	started := time.Now()
	if s.metrics != nil {
		defer func() {
			s.metrics.RecordOperation(metrics.OperationRestore, err, time.Since(started))
		}()
	}

	if err = s.orders.Restore(ctx, id); err != nil {
		return err
	}
	s.appendTimeline(ctx, id, domain.TimelineOrderRestored, "order restored")
	s.logger.WithField("order_id", id).Info("order restored")
	return nil
}

// Timeline возвращает историю заказа, включая удалённый заказ.
func (s *Service) Timeline(ctx context.Context, id int64) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.GetWithDeleted(ctx, id); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(ctx, id)
}

// assemble собирает агрегат заново из хранилища. Клиент читается с учётом
// удалённых: ссылка заказа на клиента не меняется после его удаления.
func (s *Service) assemble(ctx context.Context, order domain.Order) (domain.OrderAggregate, error) {
	customer, err := s.customers.GetWithDeleted(ctx, order.CustomerID)
	if err != nil {
		return domain.OrderAggregate{}, fmt.Errorf("load client of order %d: %w", order.ID, err)
	}

	items, err := s.items.ListFor(ctx, order.ID)
	if err != nil {
		return domain.OrderAggregate{}, fmt.Errorf("load line items of order %d: %w", order.ID, err)
	}

	return domain.OrderAggregate{Order: order, Customer: customer, Items: items}, nil
}

func (s *Service) enqueuePlaced(ctx context.Context, aggregate domain.OrderAggregate) error {
	if s.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(domain.NewOrderPlacedEvent(aggregate))
	if err != nil {
		return fmt.Errorf("encode order placed event: %w", err)
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   strconv.FormatInt(aggregate.Order.ID, 10),
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue order placed event: %w", err)
	}
	return nil
}

func (s *Service) appendTimeline(ctx context.Context, orderID int64, eventType, reason string) {
	if s.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"type":     eventType,
		}).Warn("failed to append timeline event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

type visibleCustomers struct {
	repo domain.CustomerRepository
}

func (v visibleCustomers) Resolve(ctx context.Context, id int64) (domain.Customer, error) {
	return v.repo.Get(ctx, id)
}
