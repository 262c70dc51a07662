package memory

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// entityRepository реализует domain.EntityStore поверх одной таблицы Store.
type entityRepository[T any, P recordPtr[T]] struct {
	store *Store
	pick  func(st *state) *table[T, P]
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &entityRepository[domain.Customer, *domain.Customer]{
		store: store,
		pick:  func(st *state) *table[domain.Customer, *domain.Customer] { return st.customers },
	}
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &entityRepository[domain.Product, *domain.Product]{
		store: store,
		pick:  func(st *state) *table[domain.Product, *domain.Product] { return st.products },
	}
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{entityRepository: &entityRepository[domain.Order, *domain.Order]{
		store: store,
		pick:  func(st *state) *table[domain.Order, *domain.Order] { return st.orders },
	}}
}

type orderRepository struct {
	*entityRepository[domain.Order, *domain.Order]
}

// GetForUpdate совпадает с Get: транзакция Store держит эксклюзивную блокировку.
func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (domain.Order, error) {
	return r.Get(ctx, id)
}

func (r *entityRepository[T, P]) List(ctx context.Context) ([]T, error) {
	var result []T
	err := r.store.read(ctx, func(st *state) error {
		result = r.pick(st).list()
		return nil
	})
	return result, err
}

func (r *entityRepository[T, P]) Get(ctx context.Context, id int64) (T, error) {
	var result T
	err := r.store.read(ctx, func(st *state) error {
		row, err := r.pick(st).get(id, false)
		result = row
		return err
	})
	return result, err
}

func (r *entityRepository[T, P]) GetWithDeleted(ctx context.Context, id int64) (T, error) {
	var result T
	err := r.store.read(ctx, func(st *state) error {
		row, err := r.pick(st).get(id, true)
		result = row
		return err
	})
	return result, err
}

func (r *entityRepository[T, P]) Create(ctx context.Context, entity T) (T, error) {
	var result T
	err := r.store.write(ctx, func(st *state) error {
		row, err := r.pick(st).create(entity, r.store.now())
		result = row
		return err
	})
	return result, err
}

func (r *entityRepository[T, P]) Update(ctx context.Context, entity T) (T, error) {
	var result T
	err := r.store.write(ctx, func(st *state) error {
		row, err := r.pick(st).update(entity, r.store.now())
		result = row
		return err
	})
	return result, err
}

func (r *entityRepository[T, P]) SoftDelete(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(st *state) error {
		return r.pick(st).softDelete(id, r.store.now())
	})
}

func (r *entityRepository[T, P]) Restore(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(st *state) error {
		return r.pick(st).restore(id, r.store.now())
	})
}

var (
	_ domain.CustomerRepository = (*entityRepository[domain.Customer, *domain.Customer])(nil)
	_ domain.ProductRepository  = (*entityRepository[domain.Product, *domain.Product])(nil)
	_ domain.OrderRepository    = (*orderRepository)(nil)
)
