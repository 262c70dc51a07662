package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresUpDownStatus(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	all, err := loadMigrationsFromFS(embeddedMigrations)
	require.NoError(t, err)
	latest := all[len(all)-1]

	status := func() SchemaStatus {
		t.Helper()
		s, err := store.MigrationStatus(ctx)
		require.NoError(t, err)
		return s
	}

	require.NoError(t, store.MigrateDown(ctx, len(all)+10))
	reset := status()
	require.Zero(t, reset.Version)
	require.Zero(t, reset.Applied)
	require.Len(t, reset.Pending, len(all))

	require.NoError(t, store.MigrateUp(ctx, 1))
	require.EqualValues(t, 1, status().Version)

	require.NoError(t, store.MigrateUp(ctx, 0))
	require.NoError(t, store.MigrateUp(ctx, 0), "repeated up is a no-op")
	up := status()
	require.Equal(t, latest.Version, up.Version)
	require.Equal(t, len(all), up.Applied)
	require.Empty(t, up.Pending)

	require.NoError(t, store.MigrateDown(ctx, 0), "zero steps rolls back one migration")
	down := status()
	require.Equal(t, all[len(all)-2].Version, down.Version)
	require.Equal(t, []string{latest.label()}, down.Pending)

	require.NoError(t, store.MigrateUp(ctx, 0))
	require.Equal(t, latest.Version, status().Version)
}

func TestMigrator_NilStoreAndBadDirection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var nilStore *Store
	require.ErrorIs(t, nilStore.MigrateUp(ctx, 0), errStoreNotInitialized)
	require.ErrorIs(t, nilStore.MigrateDown(ctx, 1), errStoreNotInitialized)
	_, err := nilStore.MigrationStatus(ctx)
	require.ErrorIs(t, err, errStoreNotInitialized)

	store := openRawPostgresStoreForIntegrationTest(t)
	require.Error(t, store.migrate(ctx, migrationDirection("sideways"), 0))
}
