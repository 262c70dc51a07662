package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"

	outboxLease        = 30 * time.Second
	defaultOutboxBatch = 100
)

type outboxRecord struct {
	msg         domain.OutboxMessage
	status      string
	attempts    int
	lockedUntil time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func (rec *outboxRecord) claimable(now time.Time) bool {
	return rec.status == outboxPending && !rec.lockedUntil.After(now)
}

// outboxRepository хранит сообщения в состоянии Store: Enqueue внутри WithinTx
// откатывается вместе с заказом.
type outboxRepository struct {
	store *Store
	lease time.Duration
}

// NewOutboxRepository создаёт in-memory outbox поверх общего Store.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{store: store, lease: outboxLease}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = slices.Clone(msg.Payload)

	err := r.store.write(ctx, func(st *state) error {
		if _, exists := st.outbox[msg.ID]; exists {
			return fmt.Errorf("%w: outbox message %s", domain.ErrConflict, msg.ID)
		}
		now := r.store.now()
		st.outbox[msg.ID] = &outboxRecord{msg: msg, status: outboxPending, createdAt: now, updatedAt: now}
		st.outboxOrder = append(st.outboxOrder, msg.ID)
		return nil
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return msg, nil
}

// PullPending захватывает до limit сообщений в порядке постановки на время аренды.
func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxBatch
	}

	var batch []domain.OutboxMessage
	err := r.store.write(ctx, func(st *state) error {
		now := r.store.now()
		for _, id := range st.outboxOrder {
			if len(batch) == limit {
				break
			}
			rec := st.outbox[id]
			if !rec.claimable(now) {
				continue
			}
			rec.lockedUntil = now.Add(r.lease)
			msg := rec.msg
			msg.Payload = slices.Clone(rec.msg.Payload)
			batch = append(batch, msg)
		}
		return nil
	})
	return batch, err
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats
	err := r.store.read(ctx, func(st *state) error {
		for _, id := range st.outboxOrder {
			rec := st.outbox[id]
			if rec.status != outboxPending {
				continue
			}
			stats.PendingCount++
			if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
				stats.OldestPendingAt = rec.createdAt
			}
		}
		return nil
	})
	return stats, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.settle(ctx, id, outboxSent)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.settle(ctx, id, outboxFailed)
}

func (r *outboxRepository) settle(ctx context.Context, id, status string) error {
	return r.store.write(ctx, func(st *state) error {
		rec, ok := st.outbox[id]
		if !ok {
			return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
		}
		rec.status = status
		rec.attempts++
		rec.lockedUntil = time.Time{}
		rec.updatedAt = r.store.now()
		return nil
	})
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
