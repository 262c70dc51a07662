package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// txKey помечает контекст, внутри которого Store уже удерживает блокировку.
type txKey struct{}

// state — всё транзакционное состояние in-memory драйвера.
type state struct {
	customers *table[domain.Customer, *domain.Customer]
	products  *table[domain.Product, *domain.Product]
	orders    *table[domain.Order, *domain.Order]

	// lineItems хранит позиции каждого заказа в порядке добавления.
	lineItems map[int64][]domain.LineItem

	outbox      map[string]*outboxRecord
	outboxOrder []string
}

func newState() *state {
	return &state{
		customers: newTable[domain.Customer](domain.EntityClient, customerEmailKey),
		products:  newTable[domain.Product](domain.EntityProduct, nil),
		orders:    newTable[domain.Order](domain.EntityOrder, nil),
		lineItems: make(map[int64][]domain.LineItem),
		outbox:    make(map[string]*outboxRecord),
	}
}

func (s *state) clone() *state {
	lineItems := make(map[int64][]domain.LineItem, len(s.lineItems))
	for orderID, items := range s.lineItems {
		lineItems[orderID] = append([]domain.LineItem(nil), items...)
	}

	outbox := make(map[string]*outboxRecord, len(s.outbox))
	for id, rec := range s.outbox {
		copied := *rec
		outbox[id] = &copied
	}

	return &state{
		customers:   s.customers.clone(),
		products:    s.products.clone(),
		orders:      s.orders.clone(),
		lineItems:   lineItems,
		outbox:      outbox,
		outboxOrder: append([]string(nil), s.outboxOrder...),
	}
}

// Store — общий in-memory backend для клиентов, товаров, заказов, позиций и outbox.
// Транзакция удерживает эксклюзивную блокировку и откатывает состояние из снимка при ошибке.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// NewStore создаёт пустое хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx выполняет fn атомарно относительно других операций над Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping всегда успешен; нужен для health-check в том же виде, что и у PostgreSQL.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func customerEmailKey(c domain.Customer) (string, string) {
	return "email", strings.ToLower(strings.TrimSpace(c.Email))
}

var _ domain.Transactor = (*Store)(nil)
