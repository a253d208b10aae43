package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"EmergencyMap-App/internal/domain/model"
)

func tileOfSize(z, x, y, size int, at time.Time) *model.Tile {
	return model.NewTile("region_test", model.TileCoord{Z: z, X: x, Y: y}, make([]byte, size), at)
}

func TestTileStore_LoadRecomputesTotalSize(t *testing.T) {
	now := time.Now()
	repo := newMemoryTilesRepo(
		tileOfSize(12, 1, 1, 100, now),
		tileOfSize(12, 1, 2, 250, now),
		tileOfSize(13, 4, 4, 650, now),
	)
	store := NewTileStore(repo, zaptest.NewLogger(t))

	require.NoError(t, store.Load(context.Background()))

	assert.Equal(t, int64(1000), store.TotalSize())
	assert.Equal(t, 3, store.Count())

	tile, ok := store.Get(12, 1, 2)
	require.True(t, ok)
	assert.Equal(t, int64(250), tile.Size)
}

func TestTileStore_CounterMatchesPersistedTilesAfterReload(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTilesRepo()
	store := NewTileStore(repo, zaptest.NewLogger(t))
	require.NoError(t, store.Load(ctx))

	now := time.Now()
	require.NoError(t, store.Put(ctx, tileOfSize(10, 1, 1, 300, now)))
	require.NoError(t, store.Put(ctx, tileOfSize(10, 1, 2, 200, now)))
	// 同じIDの再保存は古いサイズを差し引く
	require.NoError(t, store.Put(ctx, tileOfSize(10, 1, 1, 50, now)))
	freed, err := store.Delete(ctx, model.TileID(10, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(200), freed)

	assert.Equal(t, int64(50), store.TotalSize())

	reloaded := NewTileStore(repo, zaptest.NewLogger(t))
	require.NoError(t, reloaded.Load(ctx))

	var persisted int64
	tiles, _ := repo.GetAll(ctx)
	for _, tile := range tiles {
		persisted += tile.Size
	}
	assert.Equal(t, persisted, reloaded.TotalSize())
	assert.Equal(t, store.TotalSize(), reloaded.TotalSize())
}

func TestTileStore_RequiresLoad(t *testing.T) {
	ctx := context.Background()
	store := NewTileStore(newMemoryTilesRepo(), zaptest.NewLogger(t))

	assert.ErrorIs(t, store.Put(ctx, tileOfSize(1, 0, 0, 1, time.Now())), model.ErrStorageUnavailable)
	_, err := store.Delete(ctx, "1_0_0")
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	nilStore := NewTileStore(nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, nilStore.Load(ctx), model.ErrStorageUnavailable)
}

func TestTileStore_DeleteByRegion(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	keep := model.NewTile("region_b", model.TileCoord{Z: 5, X: 1, Y: 1}, make([]byte, 10), now)
	repo := newMemoryTilesRepo(
		model.NewTile("region_a", model.TileCoord{Z: 5, X: 0, Y: 0}, make([]byte, 10), now),
		model.NewTile("region_a", model.TileCoord{Z: 5, X: 0, Y: 1}, make([]byte, 10), now),
		keep,
	)
	store := NewTileStore(repo, zaptest.NewLogger(t))
	require.NoError(t, store.Load(ctx))

	removed, err := store.DeleteByRegion(ctx, "region_a")
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, int64(10), store.TotalSize())
	_, ok := store.Get(5, 1, 1)
	assert.True(t, ok)
}

func TestTileStore_DeleteIfOlderSkipsRefreshedTile(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * 24 * time.Hour)

	repo := newMemoryTilesRepo(
		tileOfSize(12, 5, 5, 100, now.Add(-40*24*time.Hour)),
		tileOfSize(12, 5, 6, 200, now.Add(-40*24*time.Hour)),
	)
	store := NewTileStore(repo, zaptest.NewLogger(t))
	require.NoError(t, store.Load(ctx))

	// クリーンアップがスナップショットを取った後に、ダウンロードが同じタイルを再保存する
	snapshot := store.All()
	require.NoError(t, store.Put(ctx, tileOfSize(12, 5, 5, 150, now)))

	var freed int64
	var removed int
	for _, tile := range snapshot {
		n, ok, err := store.DeleteIfOlder(ctx, tile.ID, cutoff)
		require.NoError(t, err)
		if ok {
			removed++
			freed += n
		}
	}

	assert.Equal(t, 1, removed)
	assert.Equal(t, int64(200), freed)
	refreshed, ok := store.Get(12, 5, 5)
	require.True(t, ok)
	assert.Equal(t, now, refreshed.DownloadedAt)
	assert.Equal(t, int64(150), store.TotalSize())
	assert.Equal(t, 1, repo.size())
}

func TestTileStore_DeleteIfOlderMissingTile(t *testing.T) {
	store := NewTileStore(newMemoryTilesRepo(), zaptest.NewLogger(t))
	require.NoError(t, store.Load(context.Background()))

	freed, removed, err := store.DeleteIfOlder(context.Background(), "12_0_0", time.Now())
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Zero(t, freed)
}
