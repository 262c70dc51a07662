package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `id, customer_id, created_at, updated_at, deleted_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return result, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	return r.get(ctx, id, false, false)
}

func (r *orderRepository) GetWithDeleted(ctx context.Context, id int64) (domain.Order, error) {
	return r.get(ctx, id, true, false)
}

// GetForUpdate берёт блокировку строки: конкурентные изменения и удаление
// того же заказа ждут коммита текущей транзакции.
func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (domain.Order, error) {
	return r.get(ctx, id, false, true)
}

func (r *orderRepository) get(ctx context.Context, id int64, withDeleted, lock bool) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if lock {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(r.store.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NotFound(domain.EntityOrder, id)
	}
	return order, err
}

func (r *orderRepository) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, created_at, updated_at)
		VALUES ($1,$2,$2)
		RETURNING id
	`, o.CustomerID, now).Scan(&o.ID); err != nil {
		if isForeignKeyViolation(err) {
			return domain.Order{}, domain.NotFound(domain.EntityClient, o.CustomerID)
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	o.CreatedAt = now
	o.UpdatedAt = now
	o.DeletedAt = nil
	return o, nil
}

// Update меняет клиента и в любом случае обновляет updated_at.
func (r *orderRepository) Update(ctx context.Context, o domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := r.store.conn(ctx).QueryRowContext(ctx, `
		UPDATE orders
		SET customer_id = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at
	`, o.ID, o.CustomerID, now).Scan(&o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.NotFound(domain.EntityOrder, o.ID)
		}
		if isForeignKeyViolation(err) {
			return domain.Order{}, domain.NotFound(domain.EntityClient, o.CustomerID)
		}
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = now
	o.DeletedAt = nil
	return o, nil
}

func (r *orderRepository) SoftDelete(ctx context.Context, id int64) error {
	return softDeleteRow(ctx, r.store.conn(ctx), "orders", domain.EntityOrder, id)
}

func (r *orderRepository) Restore(ctx context.Context, id int64) error {
	return restoreRow(ctx, r.store.conn(ctx), "orders", domain.EntityOrder, id)
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o         domain.Order
		deletedAt sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.CreatedAt, &o.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.DeletedAt = nullTimePtr(deletedAt)
	return o, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
