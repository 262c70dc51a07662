package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerLookup разрешает ссылку на клиента.
type CustomerLookup interface {
	Resolve(ctx context.Context, id int64) (Customer, error)
}

// CatalogLookup разрешает ссылку на товар, игнорируя отметку удаления:
// исторические заказы должны оставаться читаемыми.
type CatalogLookup interface {
	Resolve(ctx context.Context, id int64) (Product, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// ImageStore хранит файлы изображений товаров.
type ImageStore interface {
	// Put сохраняет файл и возвращает непрозрачный путь.
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	// Delete удаляет файл; отсутствие файла ошибкой не считается.
	Delete(ctx context.Context, path string) error
}

const (
	// AggregateTypeOrder — aggregate_type сообщений outbox о заказах.
	AggregateTypeOrder = "order"
	// EventTypeOrderPlaced публикуется ровно один раз на каждый закоммиченный заказ.
	EventTypeOrderPlaced = "order.placed"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OrderPlacedEvent — полезная нагрузка order.placed: всё, что нужно для письма клиенту.
type OrderPlacedEvent struct {
	OrderID       int64             `json:"order_id"`
	CreatedAt     time.Time         `json:"created_at"`
	CustomerID    int64             `json:"customer_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []OrderPlacedItem `json:"items"`
}

// OrderPlacedItem — позиция в событии order.placed.
type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderPlacedEvent собирает событие из агрегата.
func NewOrderPlacedEvent(aggregate OrderAggregate) OrderPlacedEvent {
	items := make([]OrderPlacedItem, 0, len(aggregate.Items))
	for _, item := range aggregate.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		})
	}

	return OrderPlacedEvent{
		OrderID:       aggregate.Order.ID,
		CreatedAt:     aggregate.Order.CreatedAt,
		CustomerID:    aggregate.Customer.ID,
		CustomerName:  aggregate.Customer.Name,
		CustomerEmail: aggregate.Customer.Email,
		Items:         items,
	}
}

// Total — сумма заказа по данным события.
func (e OrderPlacedEvent) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
