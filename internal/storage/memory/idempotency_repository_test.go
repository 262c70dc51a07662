package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type fakeClock struct{ at time.Time }

func (c *fakeClock) now() time.Time { return c.at }

func TestIdempotencyKeys_CreateProcessing(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	tests := []struct {
		name    string
		seed    func(r *idempotencyKeys)
		key     string
		hash    string
		wantErr error
	}{
		{name: "new key", key: "k1", hash: "h1"},
		{name: "blank key", key: "  ", hash: "h1", wantErr: domain.ErrIdempotencyKeyRequired},
		{name: "blank hash", key: "k1", hash: "", wantErr: domain.ErrIdempotencyRequestHashRequired},
		{
			name: "live key same hash",
			seed: func(r *idempotencyKeys) {
				_, _ = r.CreateProcessing(ctx, "k1", "h1", clock.at.Add(time.Hour))
			},
			key: "k1", hash: "h1",
			wantErr: domain.ErrIdempotencyKeyAlreadyExists,
		},
		{
			name: "live key other hash",
			seed: func(r *idempotencyKeys) {
				_, _ = r.CreateProcessing(ctx, "k1", "h1", clock.at.Add(time.Hour))
			},
			key: "k1", hash: "h2",
			wantErr: domain.ErrIdempotencyHashMismatch,
		},
		{
			name: "expired key is reclaimed",
			seed: func(r *idempotencyKeys) {
				_, _ = r.CreateProcessing(ctx, "k1", "h1", clock.at.Add(-time.Second))
				_ = r.MarkDone(ctx, "k1", []byte(`{}`), 201)
			},
			key: "k1", hash: "h2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newIdempotencyKeys(clock.now)
			if tt.seed != nil {
				tt.seed(repo)
			}

			record, err := repo.CreateProcessing(ctx, tt.key, tt.hash, time.Time{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)
			require.Equal(t, tt.hash, record.RequestHash)
			require.Equal(t, clock.at.Add(defaultIdempotencyTTL), record.TTLAt)
			require.Nil(t, record.ResponseBody)
		})
	}
}

func TestIdempotencyKeys_FinishOnlyProcessing(t *testing.T) {
	ctx := context.Background()
	repo := NewIdempotencyRepository()

	_, err := repo.CreateProcessing(ctx, "k1", "h1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	body := []byte(`{"id":1}`)
	require.NoError(t, repo.MarkDone(ctx, "k1", body, 201))
	body[0] = 'x'

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, got.Status)
	require.Equal(t, 201, got.HTTPStatus)
	require.JSONEq(t, `{"id":1}`, string(got.ResponseBody))

	require.ErrorIs(t, repo.MarkFailed(ctx, "k1", nil, 500), domain.ErrIdempotencyKeyNotFound)
	require.ErrorIs(t, repo.MarkDone(ctx, "missing", nil, 200), domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyKeys_DeleteExpiredOldestFirst(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()
	repo := newIdempotencyKeys(clock.now)

	for key, ttl := range map[string]time.Duration{
		"oldest": -3 * time.Hour,
		"older":  -2 * time.Hour,
		"old":    -time.Hour,
		"live":   time.Hour,
	} {
		_, err := repo.CreateProcessing(ctx, key, "hash-"+key, clock.at.Add(ttl))
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(ctx, clock.at, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = repo.Get(ctx, "oldest")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	_, err = repo.Get(ctx, "old")
	require.NoError(t, err)

	removed, err = repo.DeleteExpired(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "live")
	require.NoError(t, err)
}
