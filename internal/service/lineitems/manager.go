// Package lineitems управляет связью заказ↔товар с количеством:
// первичное добавление позиций и замену набора по разнице.
package lineitems

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ItemsField — ключ поля позиций в ошибках валидации.
const ItemsField = "products"

// Manager поддерживает таблицу позиций в соответствии с запрошенным набором.
type Manager struct {
	items   domain.LineItemRepository
	catalog domain.CatalogLookup
	tx      domain.Transactor
	logger  *log.Entry
	now     func() time.Time
}

// NewManager создаёт Manager. Transactor должен быть тем же хранилищем, что и items.
func NewManager(items domain.LineItemRepository, catalog domain.CatalogLookup, tx domain.Transactor, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.WithField("component", "line-items")
	}
	return &Manager{
		items:   items,
		catalog: catalog,
		tx:      tx,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Attach добавляет позиции к новому заказу. Все проверки выполняются до первой записи.
func (m *Manager) Attach(ctx context.Context, orderID int64, items []domain.ItemRequest) error {
	if err := domain.ValidateItems(ItemsField, items); err != nil {
		return err
	}

	return m.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.resolveAll(ctx, items); err != nil {
			return err
		}

		now := m.now()
		for _, item := range items {
			if err := m.items.Insert(ctx, domain.LineItem{
				OrderID:   orderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("attach product %d: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

// Replace устанавливает ровно запрошенный набор позиций: лишние удаляются,
// новые добавляются, у общих перезаписывается количество. Всё в одной транзакции.
func (m *Manager) Replace(ctx context.Context, orderID int64, items []domain.ItemRequest) error {
	if err := domain.ValidateItems(ItemsField, items); err != nil {
		return err
	}

	return m.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.resolveAll(ctx, items); err != nil {
			return err
		}

		current, err := m.items.ListByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load current line items: %w", err)
		}

		plan := Diff(current, items)
		now := m.now()

		for _, productID := range plan.Remove {
			if err := m.items.Delete(ctx, orderID, productID); err != nil {
				return fmt.Errorf("remove product %d: %w", productID, err)
			}
		}
		for _, item := range plan.Update {
			if err := m.items.UpdateQuantity(ctx, orderID, item.ProductID, item.Quantity, now); err != nil {
				return fmt.Errorf("update product %d: %w", item.ProductID, err)
			}
		}
		for _, item := range plan.Insert {
			if err := m.items.Insert(ctx, domain.LineItem{
				OrderID:   orderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("insert product %d: %w", item.ProductID, err)
			}
		}

		m.logger.WithFields(log.Fields{
			"order_id": orderID,
			"inserted": len(plan.Insert),
			"updated":  len(plan.Update),
			"removed":  len(plan.Remove),
		}).Debug("line items replaced")
		return nil
	})
}

// ListFor возвращает позиции в порядке добавления с текущими именем и ценой товара.
func (m *Manager) ListFor(ctx context.Context, orderID int64) ([]domain.ResolvedLineItem, error) {
	return m.items.ListResolved(ctx, orderID)
}

func (m *Manager) resolveAll(ctx context.Context, items []domain.ItemRequest) error {
	for _, item := range items {
		if _, err := m.catalog.Resolve(ctx, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}
