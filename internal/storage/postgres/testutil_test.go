package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container, applies the embedded
// migrations and returns a cleanup function.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	err = migrations.RunPostgres(ctx, pool)
	require.NoError(t, err, "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// seedAsset inserts an asset and returns its id.
func seedAsset(t *testing.T, pool *Pool, externalID string) string {
	t.Helper()

	store := NewAssetStore(pool)
	id, err := store.UpsertByExternalID(context.Background(), &domain.Asset{
		CoinGeckoID: externalID,
		Symbol:      externalID,
		Name:        externalID,
	})
	require.NoError(t, err)
	return id
}

// seedGroup inserts a group and returns its id.
func seedGroup(t *testing.T, pool *Pool, tag string) string {
	t.Helper()

	store := NewGroupStore(pool)
	id, err := store.UpsertByTag(context.Background(), &domain.Group{
		Tag:  tag,
		Type: domain.GroupTypeRankBucket,
	})
	require.NoError(t, err)
	return id
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
