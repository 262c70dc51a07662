package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type lineItemRepository struct {
	store *Store
}

// NewLineItemRepository создаёт PostgreSQL-реализацию таблицы order_product.
func NewLineItemRepository(store *Store) domain.LineItemRepository {
	return &lineItemRepository{store: store}
}

func (r *lineItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT order_id, product_id, quantity, created_at, updated_at
		FROM order_product
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	result := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return result, nil
}

// ListResolved не фильтрует удалённые товары: исторический заказ остаётся читаемым.
func (r *lineItemRepository) ListResolved(ctx context.Context, orderID int64) ([]domain.ResolvedLineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT op.order_id, op.product_id, op.quantity, op.created_at, op.updated_at,
		       p.id, p.name, p.price, p.image, p.created_at, p.updated_at, p.deleted_at
		FROM order_product op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = $1
		ORDER BY op.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list resolved order items: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ResolvedLineItem, 0)
	for rows.Next() {
		var (
			item      domain.ResolvedLineItem
			deletedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.OrderID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&item.Product.ID, &item.Product.Name, &item.Product.Price, &item.Product.Image,
			&item.Product.CreatedAt, &item.Product.UpdatedAt, &deletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan resolved order item: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		item.Product.CreatedAt = item.Product.CreatedAt.UTC()
		item.Product.UpdatedAt = item.Product.UpdatedAt.UTC()
		item.Product.DeletedAt = nullTimePtr(deletedAt)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved order items: %w", err)
	}
	return result, nil
}

func (r *lineItemRepository) Insert(ctx context.Context, item domain.LineItem) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	_, err := r.store.conn(ctx).ExecContext(ctx, `
		INSERT INTO order_product (order_id, product_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, item.OrderID, item.ProductID, item.Quantity, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("line item (order %d, product %d) already exists: %w",
				item.OrderID, item.ProductID, domain.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return domain.NotFound(domain.EntityProduct, item.ProductID)
		}
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *lineItemRepository) UpdateQuantity(ctx context.Context, orderID, productID int64, quantity int, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		UPDATE order_product
		SET quantity = $3, updated_at = $4
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID, quantity, at)
	if err != nil {
		return fmt.Errorf("update order item quantity: %w", err)
	}
	return expectAffected(res, domain.NotFound(domain.EntityProduct, productID))
}

func (r *lineItemRepository) Delete(ctx context.Context, orderID, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		DELETE FROM order_product
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	return expectAffected(res, domain.NotFound(domain.EntityProduct, productID))
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.LineItemRepository = (*lineItemRepository)(nil)
