package domain

import (
	"context"
	"time"
)

// EntityStore — общий контракт хранилища сущности с мягким удалением.
// Одинаково используется для клиентов, товаров и заказов.
type EntityStore[T any] interface {
	// List возвращает все не удалённые записи.
	List(ctx context.Context) ([]T, error)
	// Get возвращает не удалённую запись или NotFoundError.
	Get(ctx context.Context, id int64) (T, error)
	// GetWithDeleted игнорирует отметку удаления (restore, исторические ссылки).
	GetWithDeleted(ctx context.Context, id int64) (T, error)
	// Create присваивает ID и временные метки. Возвращает ConflictError при нарушении уникальности.
	Create(ctx context.Context, entity T) (T, error)
	// Update перезаписывает не удалённую запись. NotFoundError, если её нет.
	Update(ctx context.Context, entity T) (T, error)
	// SoftDelete ставит отметку удаления. NotFoundError, если записи нет или она уже удалена.
	SoftDelete(ctx context.Context, id int64) error
	// Restore снимает отметку удаления. StateError, если запись не удалена.
	Restore(ctx context.Context, id int64) error
}

// CustomerRepository хранит клиентов.
type CustomerRepository interface {
	EntityStore[Customer]
}

// ProductRepository хранит товары каталога.
type ProductRepository interface {
	EntityStore[Product]
}

// OrderRepository хранит строки заказов (без позиций).
type OrderRepository interface {
	EntityStore[Order]
	// GetForUpdate читает не удалённый заказ и блокирует строку до конца
	// текущей транзакции. Вне транзакции ведёт себя как Get.
	GetForUpdate(ctx context.Context, id int64) (Order, error)
}

// LineItemRepository — низкоуровневый доступ к таблице связей заказ↔товар.
type LineItemRepository interface {
	// ListByOrder возвращает позиции заказа в порядке добавления.
	ListByOrder(ctx context.Context, orderID int64) ([]LineItem, error)
	// ListResolved возвращает позиции, соединённые с текущими данными товаров.
	ListResolved(ctx context.Context, orderID int64) ([]ResolvedLineItem, error)
	Insert(ctx context.Context, item LineItem) error
	UpdateQuantity(ctx context.Context, orderID, productID int64, quantity int, at time.Time) error
	Delete(ctx context.Context, orderID, productID int64) error
}

// Transactor выполняет fn атомарно. Вложенный вызов присоединяется к текущей транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
// Enqueue внутри WithinTx пишет в ту же транзакцию.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID int64) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по Idempotency-Key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
