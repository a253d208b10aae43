package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"EmergencyMap-App/internal/domain/helper"
	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/service"
	"EmergencyMap-App/internal/infrastructure/database"
	"EmergencyMap-App/internal/infrastructure/geolocation"
	"EmergencyMap-App/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	failIDs map[string]bool
}

func (f *stubFetcher) FetchTile(ctx context.Context, coord model.TileCoord) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failIDs[coord.ID()] {
		return nil, fmt.Errorf("%w: %s", model.ErrTileFetchFailed, coord.ID())
	}
	return []byte("tile-" + coord.ID()), nil
}

type stubFeed struct {
	locations []*model.EmergencyLocation
}

func (f *stubFeed) FetchLocations(ctx context.Context, locationType string) ([]*model.EmergencyLocation, error) {
	return f.locations, nil
}

type stubCatalog struct {
	routes []*model.OfflineRoute
	err    error
}

func (c *stubCatalog) FetchRoutes(ctx context.Context) ([]*model.OfflineRoute, error) {
	return c.routes, c.err
}

type testEnv struct {
	uc        OfflineMapUseCase
	positions *geolocation.PushSource
	fetcher   *stubFetcher
	dbPath    string
}

func newTestEnv(t *testing.T, dbPath string) *testEnv {
	t.Helper()
	client, err := database.NewSQLiteClient(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	logger := zaptest.NewLogger(t)
	env := &testEnv{
		positions: geolocation.NewPushSource(logger),
		fetcher:   &stubFetcher{failIDs: map[string]bool{}},
		dbPath:    dbPath,
	}
	env.uc = NewOfflineMapUseCase(Dependencies{
		Tiles:      repository.NewSQLTilesRepository(client.DB),
		Regions:    repository.NewSQLRegionsRepository(client.DB),
		Locations:  repository.NewSQLLocationsRepository(client.DB),
		Routes:     repository.NewSQLRoutesRepository(client.DB),
		Fetcher:    env.fetcher,
		Positions:  env.positions,
		Logger:     logger,
		Downloader: service.DownloaderConfig{BatchSize: 4},
	})
	t.Cleanup(env.uc.Close)
	return env
}

func kyotoStation() *model.RegionRequest {
	return &model.RegionRequest{
		Name:       "京都駅周辺",
		Bounds:     model.Bounds{North: 34.990, South: 34.980, East: 135.765, West: 135.750},
		ZoomLevels: []int{13, 14},
		Priority:   model.RegionPriorityHigh,
	}
}

func evacuationRoute() *model.OfflineRoute {
	waypoints := []model.Waypoint{
		{Location: model.LatLng{Lat: 35.000, Lng: 135.0}, Instruction: "北へ進む", DistanceToNext: 111, DurationToNext: 80},
		{Location: model.LatLng{Lat: 35.001, Lng: 135.0}, Instruction: "直進", DistanceToNext: 111, DurationToNext: 80},
		{Location: model.LatLng{Lat: 35.002, Lng: 135.0}, Instruction: "右折", DistanceToNext: 111, DurationToNext: 80},
		{Location: model.LatLng{Lat: 35.003, Lng: 135.0}, Instruction: "避難所に到着"},
	}
	return &model.OfflineRoute{
		ID:            "evac-1",
		Name:          "避難経路1",
		Start:         waypoints[0].Location,
		End:           waypoints[3].Location,
		Waypoints:     waypoints,
		TotalDistance: 333,
		TotalDuration: 240,
		RouteType:     model.RouteTypeEvacuation,
	}
}

func TestOfflineMapUseCase_RequiresInit(t *testing.T) {
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))

	_, err := env.uc.DownloadRegion(context.Background(), kyotoStation())
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	_, err = env.uc.StartRegionDownload(context.Background(), kyotoStation())
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	err = env.uc.CacheRoutes(context.Background(), []*model.OfflineRoute{evacuationRoute()})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestOfflineMapUseCase_RegionLifecycle(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	env := newTestEnv(t, dbPath)
	require.NoError(t, env.uc.Init(ctx))

	req := kyotoStation()
	expected := helper.EnumerateTiles(req.Bounds, req.ZoomLevels)
	require.NotEmpty(t, expected)

	region, err := env.uc.DownloadRegion(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 100, region.Progress)
	assert.True(t, region.IsDownloaded())
	assert.Equal(t, len(expected), region.TileCount)

	first := expected[0]
	tile, ok := env.uc.Tile(first.Z, first.X, first.Y)
	require.True(t, ok)
	assert.Equal(t, region.ID, tile.RegionID)
	assert.Equal(t, []byte("tile-"+first.ID()), tile.Data)

	stats, err := env.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(expected), stats.TileCount)
	assert.Equal(t, 1, stats.RegionCount)
	assert.False(t, stats.Offline)

	t.Run("再起動後も復元される", func(t *testing.T) {
		reopened := newTestEnv(t, dbPath)
		require.NoError(t, reopened.uc.Init(ctx))

		restored, err := reopened.uc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, stats.TileCount, restored.TileCount)
		assert.Equal(t, stats.TotalSizeBytes, restored.TotalSizeBytes)
	})

	t.Run("地域の削除", func(t *testing.T) {
		require.NoError(t, env.uc.DeleteRegion(ctx, region.ID))

		_, ok := env.uc.Tile(first.Z, first.X, first.Y)
		assert.False(t, ok)

		regions, err := env.uc.Regions(ctx)
		require.NoError(t, err)
		assert.Empty(t, regions)

		err = env.uc.DeleteRegion(ctx, region.ID)
		assert.ErrorIs(t, err, model.ErrRegionNotFound)
	})
}

func TestOfflineMapUseCase_StartRegionDownload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, env.uc.Init(ctx))

	completed := make(chan model.Region, 1)
	unsubscribe := env.uc.Events().Subscribe(model.EventDownloadCompleted, func(e model.Event) {
		completed <- e.(model.DownloadCompleted).Region
	})
	defer unsubscribe()

	planned, err := env.uc.StartRegionDownload(ctx, kyotoStation())
	require.NoError(t, err)
	assert.False(t, planned.IsDownloaded())

	select {
	case region := <-completed:
		assert.Equal(t, planned.ID, region.ID)
		assert.Equal(t, 100, region.Progress)
	case <-time.After(5 * time.Second):
		t.Fatal("download did not complete")
	}

	regions, err := env.uc.Regions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.True(t, regions[0].IsDownloaded())
}

func TestOfflineMapUseCase_StartRegionDownload_InvalidRegion(t *testing.T) {
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, env.uc.Init(context.Background()))

	req := kyotoStation()
	req.ZoomLevels = nil
	_, err := env.uc.StartRegionDownload(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidRegion)
}

func TestOfflineMapUseCase_Navigation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, env.uc.Init(ctx))
	require.NoError(t, env.uc.CacheRoutes(ctx, []*model.OfflineRoute{evacuationRoute()}))

	route, err := env.uc.FindRoute(model.LatLng{Lat: 35.0005, Lng: 135.0}, model.LatLng{Lat: 35.003, Lng: 135.0}, model.RouteTypeEvacuation)
	require.NoError(t, err)
	assert.Equal(t, "evac-1", route.ID)

	_, err = env.uc.FindRoute(model.LatLng{Lat: 36, Lng: 135}, model.LatLng{Lat: 35.003, Lng: 135.0}, "")
	assert.ErrorIs(t, err, model.ErrRouteNotFound)

	assert.ErrorIs(t, env.uc.StartNavigation("missing"), model.ErrRouteNotFound)

	require.NoError(t, env.uc.StartNavigation("evac-1"))
	assert.Equal(t, 1, env.positions.Watching())

	env.positions.Push(model.Position{Location: model.LatLng{Lat: 35.002, Lng: 135.0}, Accuracy: 5})

	state := env.uc.NavigationState()
	assert.True(t, state.Active)
	assert.Equal(t, 2, state.NearestWaypointIndex)
	assert.InDelta(t, 111, state.DistanceRemaining, 0.001)
	assert.Equal(t, "避難所に到着", state.NextInstruction)

	env.uc.StopNavigation()
	assert.False(t, env.uc.NavigationState().Active)
	assert.Equal(t, 0, env.positions.Watching())
}

func TestOfflineMapUseCase_Sync(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, env.uc.Init(ctx))

	feed := &stubFeed{locations: []*model.EmergencyLocation{
		{ID: "h1", Name: "病院", Type: model.LocationTypeHospital, Location: model.LatLng{Lat: 35.0, Lng: 135.76}, Priority: 9, IsOperational: true},
		{ID: "s1", Name: "避難所", Type: model.LocationTypeShelter, Location: model.LatLng{Lat: 35.01, Lng: 135.76}, Priority: 6, IsOperational: true},
	}}

	n, err := env.uc.SyncLocations(ctx, feed, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, env.uc.QueryLocations(model.LocationQuery{Type: model.LocationTypeShelter}), 1)

	n, err = env.uc.SyncRoutes(ctx, &stubCatalog{routes: []*model.OfflineRoute{evacuationRoute()}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	catalogErr := errors.New("catalog down")
	_, err = env.uc.SyncRoutes(ctx, &stubCatalog{err: catalogErr})
	assert.ErrorIs(t, err, catalogErr)

	env.uc.SetOnline(false)
	assert.True(t, env.uc.IsOffline())
	_, err = env.uc.SyncLocations(ctx, feed, "")
	assert.Error(t, err)
}

func TestOfflineMapUseCase_RunMaintenance(t *testing.T) {
	env := newTestEnv(t, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, env.uc.Init(context.Background()))

	cleaned := make(chan struct{}, 1)
	unsubscribe := env.uc.Events().Subscribe(model.EventCacheCleaned, func(model.Event) {
		select {
		case cleaned <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.uc.RunMaintenance(ctx, 10*time.Millisecond, 0)
		close(done)
	}()

	select {
	case <-cleaned:
	case <-time.After(5 * time.Second):
		t.Fatal("periodic cleanup did not run")
	}
	cancel()
	<-done
}
