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

func TestCacheJanitor_Cleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tilesRepo := newMemoryTilesRepo(
		tileOfSize(12, 0, 0, 100, now.Add(-31*day)),
		tileOfSize(12, 0, 1, 200, now.Add(-45*day)),
		tileOfSize(12, 0, 2, 300, now.Add(-29*day)),
		tileOfSize(12, 0, 3, 400, now.Add(-30*day)), // ちょうど30日は残す
	)
	regionsRepo := newMemoryRegionsRepo(
		&model.Region{ID: "old", DownloadedAt: at(40 * day), CreatedAt: now.Add(-40 * day)},
		&model.Region{ID: "recent", DownloadedAt: at(2 * day), CreatedAt: now.Add(-2 * day)},
		&model.Region{ID: "never-completed", CreatedAt: now.Add(-100 * day)},
	)

	bus := NewEventBus()
	events := recordEvents(bus)
	logger := zaptest.NewLogger(t)
	tiles := NewTileStore(tilesRepo, logger)
	require.NoError(t, tiles.Load(ctx))

	janitor := NewCacheJanitor(tiles, regionsRepo, bus, logger, 0)
	janitor.now = func() time.Time { return now }

	result, err := janitor.Cleanup(ctx)
	require.NoError(t, err)

	assert.Equal(t, CleanupResult{TilesRemoved: 2, BytesFreed: 300, RegionsRemoved: 1}, result)
	assert.Equal(t, 2, tiles.Count())
	assert.Equal(t, int64(700), tiles.TotalSize())
	assert.Equal(t, 2, tilesRepo.size())

	_, ok := tiles.Get(12, 0, 2)
	assert.True(t, ok)
	_, ok = tiles.Get(12, 0, 3)
	assert.True(t, ok)

	remaining, _ := regionsRepo.GetAll(ctx)
	var ids []string
	for _, r := range remaining {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"recent", "never-completed"}, ids)

	cleaned := events.ofKind(model.EventCacheCleaned)
	require.Len(t, cleaned, 1)
	assert.Equal(t, int64(300), cleaned[0].(model.CacheCleaned).BytesFreed)
}

func TestCacheJanitor_RunStopsWithContext(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tiles := NewTileStore(newMemoryTilesRepo(), logger)
	require.NoError(t, tiles.Load(context.Background()))
	bus := NewEventBus()
	events := recordEvents(bus)
	janitor := NewCacheJanitor(tiles, newMemoryRegionsRepo(), bus, logger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(events.ofKind(model.EventCacheCleaned)) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
