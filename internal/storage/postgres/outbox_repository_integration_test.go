package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func orderPlaced(aggregateID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   aggregateID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       []byte(`{"order_id":` + aggregateID + `}`),
	}
}

func TestOutboxRepository_PostgresClaimAndSettle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, orderPlaced("1"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	fixed := orderPlaced("2")
	fixed.ID = "outbox-fixed-id"
	second, err := repo.Enqueue(ctx, fixed)
	require.NoError(t, err)
	require.Equal(t, "outbox-fixed-id", second.ID)

	_, err = repo.Enqueue(ctx, fixed)
	require.Error(t, err, "outbox id is a primary key")

	batch, err := repo.PullPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, first.ID, batch[0].ID)
	require.JSONEq(t, `{"order_id":1}`, string(batch[0].Payload))

	again, err := repo.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, again, "claimed messages are hidden during the lease")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(ctx, first.ID))
	require.NoError(t, repo.MarkFailed(ctx, second.ID))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)

	require.ErrorIs(t, repo.MarkSent(ctx, "missing-outbox"), domain.ErrOutboxPublish)
	require.ErrorIs(t, repo.MarkFailed(ctx, "missing-outbox"), domain.ErrOutboxPublish)
}

func TestOutboxRepository_PostgresExpiredLeaseIsReclaimed(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := &outboxRepository{store: store, lease: -time.Second}
	ctx := context.Background()

	msg, err := repo.Enqueue(ctx, orderPlaced("7"))
	require.NoError(t, err)

	for range 2 {
		batch, err := repo.PullPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		require.Equal(t, msg.ID, batch[0].ID)
	}
}
