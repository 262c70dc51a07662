package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type lineItemRepositoryInMemory struct {
	store *Store
}

// NewLineItemRepository создаёт in-memory таблицу связей заказ↔товар.
func NewLineItemRepository(store *Store) domain.LineItemRepository {
	return &lineItemRepositoryInMemory{store: store}
}

func (r *lineItemRepositoryInMemory) ListByOrder(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	var result []domain.LineItem
	err := r.store.read(ctx, func(st *state) error {
		result = append([]domain.LineItem{}, st.lineItems[orderID]...)
		return nil
	})
	return result, err
}

// ListResolved соединяет позиции с товарами, включая удалённые.
func (r *lineItemRepositoryInMemory) ListResolved(ctx context.Context, orderID int64) ([]domain.ResolvedLineItem, error) {
	var result []domain.ResolvedLineItem
	err := r.store.read(ctx, func(st *state) error {
		items := st.lineItems[orderID]
		result = make([]domain.ResolvedLineItem, 0, len(items))
		for _, item := range items {
			product, err := st.products.get(item.ProductID, true)
			if err != nil {
				return err
			}
			result = append(result, domain.ResolvedLineItem{LineItem: item, Product: product})
		}
		return nil
	})
	return result, err
}

func (r *lineItemRepositoryInMemory) Insert(ctx context.Context, item domain.LineItem) error {
	return r.store.write(ctx, func(st *state) error {
		if _, err := st.orders.get(item.OrderID, true); err != nil {
			return err
		}
		if _, err := st.products.get(item.ProductID, true); err != nil {
			return err
		}
		for _, existing := range st.lineItems[item.OrderID] {
			if existing.ProductID == item.ProductID {
				return fmt.Errorf("line item (order %d, product %d) already exists: %w",
					item.OrderID, item.ProductID, domain.ErrConflict)
			}
		}

		now := r.store.now()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = item.CreatedAt
		}
		st.lineItems[item.OrderID] = append(st.lineItems[item.OrderID], item)
		return nil
	})
}

func (r *lineItemRepositoryInMemory) UpdateQuantity(ctx context.Context, orderID, productID int64, quantity int, at time.Time) error {
	return r.store.write(ctx, func(st *state) error {
		items := st.lineItems[orderID]
		for i := range items {
			if items[i].ProductID != productID {
				continue
			}
			items[i].Quantity = quantity
			items[i].UpdatedAt = at
			return nil
		}
		return domain.NotFound(domain.EntityProduct, productID)
	})
}

func (r *lineItemRepositoryInMemory) Delete(ctx context.Context, orderID, productID int64) error {
	return r.store.write(ctx, func(st *state) error {
		items := st.lineItems[orderID]
		for i := range items {
			if items[i].ProductID != productID {
				continue
			}
			st.lineItems[orderID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
		return domain.NotFound(domain.EntityProduct, productID)
	})
}

var _ domain.LineItemRepository = (*lineItemRepositoryInMemory)(nil)
