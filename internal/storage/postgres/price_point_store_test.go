package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-tracker/internal/domain"
)

func TestPricePointStore_CommitAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	inserted, err := store.CommitSeries(ctx, assetID, domain.GrainDaily, []*domain.PricePoint{
		{ObservedAt: t2, Currency: "USD", Price: 110, MarketCap: ptr(2.1e12), Volume: ptr(3.2e10)},
		{ObservedAt: t1, Currency: "USD", Price: 100, MarketCap: nil, Volume: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	points, err := store.ListSeries(ctx, assetID, domain.GrainDaily)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.True(t, points[0].ObservedAt.Equal(t1), "points must be ordered ascending")
	assert.Equal(t, 100.0, points[0].Price)
	assert.Nil(t, points[0].MarketCap)
	assert.Nil(t, points[0].Volume)

	require.NotNil(t, points[1].MarketCap)
	assert.Equal(t, 2.1e12, *points[1].MarketCap)

	// Watermark lands on the max observed_at regardless of input order.
	asset, err := NewAssetStore(pool).GetByExternalID(ctx, "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, asset.LastDailyObservedAt)
	assert.True(t, asset.LastDailyObservedAt.Equal(t2))
	assert.Nil(t, asset.LastHourlyObservedAt)
}

func TestPricePointStore_CommitSkipsExistingKeys(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.CommitSeries(ctx, assetID, domain.GrainDaily, []*domain.PricePoint{
		{ObservedAt: t1, Currency: "USD", Price: 100},
	})
	require.NoError(t, err)

	// Replaying the key is a no-op; the stored value wins.
	inserted, err := store.CommitSeries(ctx, assetID, domain.GrainDaily, []*domain.PricePoint{
		{ObservedAt: t1, Currency: "USD", Price: 999},
		{ObservedAt: t1.Add(24 * time.Hour), Currency: "USD", Price: 110},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	points, err := store.ListSeries(ctx, assetID, domain.GrainDaily)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 100.0, points[0].Price)
}

func TestPricePointStore_WatermarkNeverMovesBackward(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	newer := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-48 * time.Hour)

	_, err := store.CommitSeries(ctx, assetID, domain.GrainHourly, []*domain.PricePoint{
		{ObservedAt: newer, Currency: "USD", Price: 1},
	})
	require.NoError(t, err)

	_, err = store.CommitSeries(ctx, assetID, domain.GrainHourly, []*domain.PricePoint{
		{ObservedAt: older, Currency: "USD", Price: 1},
	})
	require.NoError(t, err)

	asset, err := NewAssetStore(pool).GetByExternalID(ctx, "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, asset.LastHourlyObservedAt)
	assert.True(t, asset.LastHourlyObservedAt.Equal(newer))
}

func TestPricePointStore_GrainsAreIndependent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.CommitSeries(ctx, assetID, domain.GrainDaily, []*domain.PricePoint{
		{ObservedAt: ts, Currency: "USD", Price: 100},
	})
	require.NoError(t, err)

	hourly, err := store.ListSeries(ctx, assetID, domain.GrainHourly)
	require.NoError(t, err)
	assert.Empty(t, hourly)

	asset, err := NewAssetStore(pool).GetByExternalID(ctx, "bitcoin")
	require.NoError(t, err)
	assert.NotNil(t, asset.LastDailyObservedAt)
	assert.Nil(t, asset.LastHourlyObservedAt)
}

func TestPricePointStore_EmptySeriesLeavesWatermarkAlone(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	inserted, err := store.CommitSeries(ctx, assetID, domain.GrainDaily, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	asset, err := NewAssetStore(pool).GetByExternalID(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, asset.LastDailyObservedAt)
}

func TestPricePointStore_RejectsUnknownGrain(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPricePointStore(pool)
	assetID := seedAsset(t, pool, "bitcoin")

	_, err := store.CommitSeries(context.Background(), assetID, domain.Grain("weekly"), []*domain.PricePoint{
		{ObservedAt: time.Now(), Currency: "USD", Price: 1},
	})
	assert.Error(t, err)
}
