package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
	"EmergencyMap-App/internal/domain/service"
)

type OfflineMapUseCase interface {
	// Init は永続化層から既存のキャッシュを読み込む。他の操作より先に呼ぶ
	Init(ctx context.Context) error

	// DownloadRegion は地域のタイルを全て取得し終えるまで待つ
	DownloadRegion(ctx context.Context, req *model.RegionRequest) (*model.Region, error)
	// StartRegionDownload は計画済みの地域を返し、ダウンロードはバックグラウンドで進める
	StartRegionDownload(ctx context.Context, req *model.RegionRequest) (*model.Region, error)
	Regions(ctx context.Context) ([]*model.Region, error)
	DeleteRegion(ctx context.Context, id string) error
	Tile(z, x, y int) (*model.Tile, bool)

	CacheLocations(ctx context.Context, locations []*model.EmergencyLocation) error
	QueryLocations(query model.LocationQuery) []*model.EmergencyLocation
	SyncLocations(ctx context.Context, feed repository.LocationFeed, locationType string) (int, error)

	CacheRoutes(ctx context.Context, routes []*model.OfflineRoute) error
	FindRoute(start, end model.LatLng, routeType string) (*model.OfflineRoute, error)
	SyncRoutes(ctx context.Context, catalog repository.RouteCatalog) (int, error)

	StartNavigation(routeID string) error
	StopNavigation()
	NavigationState() model.NavigationState

	Cleanup(ctx context.Context) (service.CleanupResult, error)
	Stats(ctx context.Context) (model.CacheStats, error)
	// CacheSize はタイル数と合計バイト数をロックのみで返す（メトリクス用）
	CacheSize() (tiles int, bytes int64)
	IsOffline() bool
	SetOnline(online bool)

	// RunMaintenance は定期クリーンアップと接続確認を ctx が終わるまで実行する
	RunMaintenance(ctx context.Context, cleanupInterval, probeInterval time.Duration)
	Events() *service.EventBus
	// Close は実行中のバックグラウンドダウンロードを中断して終了を待ち、ナビゲーションを止める
	Close()
}

// Dependencies は OfflineMapUseCase の組み立てに必要な依存
type Dependencies struct {
	Tiles     repository.TilesRepository
	Regions   repository.RegionsRepository
	Locations repository.LocationsRepository
	Routes    repository.RoutesRepository

	Fetcher   service.TileFetcher
	Positions service.PositionSource
	Bus       *service.EventBus
	Logger    *zap.Logger

	Downloader service.DownloaderConfig
	Retention  time.Duration
	ProbeURL   string
}

// offlineMapUseCaseImpl はOfflineMapUseCaseの実装
type offlineMapUseCaseImpl struct {
	tiles        *service.TileStore
	regions      repository.RegionsRepository
	downloader   *service.RegionDownloader
	locations    *service.LocationCache
	routes       *service.RouteCache
	navigation   *service.NavigationTracker
	janitor      *service.CacheJanitor
	connectivity *service.ConnectivityMonitor
	bus          *service.EventBus
	logger       *zap.Logger

	ready      atomic.Bool
	background sync.WaitGroup
	cancelAll  context.CancelFunc
	baseCtx    context.Context
}

// NewOfflineMapUseCase は新しいOfflineMapUseCaseインスタンスを作成
func NewOfflineMapUseCase(deps Dependencies) OfflineMapUseCase {
	bus := deps.Bus
	if bus == nil {
		bus = service.NewEventBus()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tiles := service.NewTileStore(deps.Tiles, logger)
	routes := service.NewRouteCache(deps.Routes, bus, logger)
	baseCtx, cancel := context.WithCancel(context.Background())

	return &offlineMapUseCaseImpl{
		tiles:        tiles,
		regions:      deps.Regions,
		downloader:   service.NewRegionDownloader(deps.Fetcher, tiles, deps.Regions, bus, logger, deps.Downloader),
		locations:    service.NewLocationCache(deps.Locations, bus, logger),
		routes:       routes,
		navigation:   service.NewNavigationTracker(routes, deps.Positions, bus, logger),
		janitor:      service.NewCacheJanitor(tiles, deps.Regions, bus, logger, deps.Retention),
		connectivity: service.NewConnectivityMonitor(bus, logger, deps.ProbeURL),
		bus:          bus,
		logger:       logger,
		cancelAll:    cancel,
		baseCtx:      baseCtx,
	}
}

func (u *offlineMapUseCaseImpl) Init(ctx context.Context) error {
	if u.regions == nil {
		return model.ErrStorageUnavailable
	}
	if err := u.tiles.Load(ctx); err != nil {
		return fmt.Errorf("タイルキャッシュの初期化に失敗: %w", err)
	}
	if err := u.locations.Load(ctx); err != nil {
		return fmt.Errorf("緊急施設キャッシュの初期化に失敗: %w", err)
	}
	if err := u.routes.Load(ctx); err != nil {
		return fmt.Errorf("ルートキャッシュの初期化に失敗: %w", err)
	}

	u.ready.Store(true)
	u.logger.Info("📦 Offline cache initialized",
		zap.Int("tiles", u.tiles.Count()),
		zap.Int64("bytes", u.tiles.TotalSize()),
		zap.Int("locations", u.locations.Count()),
		zap.Int("routes", u.routes.Count()))
	return nil
}

func (u *offlineMapUseCaseImpl) DownloadRegion(ctx context.Context, req *model.RegionRequest) (*model.Region, error) {
	if !u.ready.Load() {
		return nil, model.ErrStorageUnavailable
	}
	return u.downloader.Download(ctx, req)
}

func (u *offlineMapUseCaseImpl) StartRegionDownload(ctx context.Context, req *model.RegionRequest) (*model.Region, error) {
	if !u.ready.Load() {
		return nil, model.ErrStorageUnavailable
	}
	region, coords, err := u.downloader.Plan(req)
	if err != nil {
		return nil, err
	}
	planned := *region

	u.background.Add(1)
	go func() {
		defer u.background.Done()
		// 失敗は DownloadFailed イベントで通知済み
		_ = u.downloader.Execute(u.baseCtx, region, coords)
	}()

	return &planned, nil
}

// Regions は保存済みの地域とダウンロード中の地域を作成順に返す
func (u *offlineMapUseCaseImpl) Regions(ctx context.Context) ([]*model.Region, error) {
	if u.regions == nil {
		return nil, model.ErrStorageUnavailable
	}
	stored, err := u.regions.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stored))
	for _, r := range stored {
		seen[r.ID] = true
	}
	for _, active := range u.downloader.Active() {
		if seen[active.ID] {
			continue
		}
		r := active
		stored = append(stored, &r)
	}

	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})
	return stored, nil
}

// DeleteRegion は地域とその地域のタイルを削除する
func (u *offlineMapUseCaseImpl) DeleteRegion(ctx context.Context, id string) error {
	if u.regions == nil {
		return model.ErrStorageUnavailable
	}
	if _, err := u.regions.GetByID(ctx, id); err != nil {
		return err
	}

	removed, err := u.tiles.DeleteByRegion(ctx, id)
	if err != nil {
		return fmt.Errorf("地域 %s のタイル削除に失敗: %w", id, err)
	}
	if err := u.regions.Delete(ctx, id); err != nil {
		return err
	}

	u.logger.Info("🗑️ Region deleted", zap.String("region_id", id), zap.Int("tiles_removed", removed))
	return nil
}

func (u *offlineMapUseCaseImpl) Tile(z, x, y int) (*model.Tile, bool) {
	return u.tiles.Get(z, x, y)
}

func (u *offlineMapUseCaseImpl) CacheLocations(ctx context.Context, locations []*model.EmergencyLocation) error {
	return u.locations.Cache(ctx, locations)
}

func (u *offlineMapUseCaseImpl) QueryLocations(query model.LocationQuery) []*model.EmergencyLocation {
	return u.locations.Query(query)
}

// SyncLocations は外部配信元から施設を取得してキャッシュする
func (u *offlineMapUseCaseImpl) SyncLocations(ctx context.Context, feed repository.LocationFeed, locationType string) (int, error) {
	if u.IsOffline() {
		return 0, fmt.Errorf("オフラインのため緊急施設を同期できません")
	}
	locations, err := feed.FetchLocations(ctx, locationType)
	if err != nil {
		return 0, err
	}
	if len(locations) == 0 {
		return 0, nil
	}
	if err := u.locations.Cache(ctx, locations); err != nil {
		return 0, err
	}
	return len(locations), nil
}

func (u *offlineMapUseCaseImpl) CacheRoutes(ctx context.Context, routes []*model.OfflineRoute) error {
	return u.routes.Cache(ctx, routes)
}

func (u *offlineMapUseCaseImpl) FindRoute(start, end model.LatLng, routeType string) (*model.OfflineRoute, error) {
	route, ok := u.routes.Find(start, end, routeType)
	if !ok {
		return nil, model.ErrRouteNotFound
	}
	return route, nil
}

// SyncRoutes はルートカタログから事前計算済みルートを取得してキャッシュする
func (u *offlineMapUseCaseImpl) SyncRoutes(ctx context.Context, catalog repository.RouteCatalog) (int, error) {
	if u.IsOffline() {
		return 0, fmt.Errorf("オフラインのためルートを同期できません")
	}
	routes, err := catalog.FetchRoutes(ctx)
	if err != nil {
		return 0, err
	}
	if len(routes) == 0 {
		return 0, nil
	}
	if err := u.routes.Cache(ctx, routes); err != nil {
		return 0, err
	}
	return len(routes), nil
}

func (u *offlineMapUseCaseImpl) StartNavigation(routeID string) error {
	return u.navigation.Start(routeID)
}

func (u *offlineMapUseCaseImpl) StopNavigation() {
	u.navigation.Stop()
}

func (u *offlineMapUseCaseImpl) NavigationState() model.NavigationState {
	return u.navigation.State()
}

func (u *offlineMapUseCaseImpl) Cleanup(ctx context.Context) (service.CleanupResult, error) {
	return u.janitor.Cleanup(ctx)
}

func (u *offlineMapUseCaseImpl) Stats(ctx context.Context) (model.CacheStats, error) {
	regions, err := u.Regions(ctx)
	if err != nil {
		return model.CacheStats{}, err
	}
	return model.CacheStats{
		TileCount:      u.tiles.Count(),
		TotalSizeBytes: u.tiles.TotalSize(),
		RegionCount:    len(regions),
		LocationCount:  u.locations.Count(),
		RouteCount:     u.routes.Count(),
		Offline:        u.IsOffline(),
	}, nil
}

func (u *offlineMapUseCaseImpl) CacheSize() (int, int64) {
	return u.tiles.Count(), u.tiles.TotalSize()
}

func (u *offlineMapUseCaseImpl) IsOffline() bool {
	return u.connectivity.IsOffline()
}

func (u *offlineMapUseCaseImpl) SetOnline(online bool) {
	u.connectivity.SetOnline(online)
}

func (u *offlineMapUseCaseImpl) RunMaintenance(ctx context.Context, cleanupInterval, probeInterval time.Duration) {
	var wg sync.WaitGroup
	if cleanupInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.janitor.Run(ctx, cleanupInterval)
		}()
	}
	if probeInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.connectivity.Run(ctx, probeInterval)
		}()
	}
	wg.Wait()
}

func (u *offlineMapUseCaseImpl) Events() *service.EventBus {
	return u.bus
}

func (u *offlineMapUseCaseImpl) Close() {
	u.cancelAll()
	u.background.Wait()
	u.navigation.Stop()
}
