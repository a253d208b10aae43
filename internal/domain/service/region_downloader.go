package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"EmergencyMap-App/internal/domain/helper"
	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 100 * time.Millisecond
)

// TileFetcher タイル画像を取得するプロバイダ
type TileFetcher interface {
	FetchTile(ctx context.Context, coord model.TileCoord) ([]byte, error)
}

// DownloaderConfig バッチサイズとバッチ間の待機時間
type DownloaderConfig struct {
	BatchSize  int
	BatchDelay time.Duration
}

// RegionDownloader は地域のタイルをバッチ単位で並行取得する
type RegionDownloader struct {
	fetcher TileFetcher
	tiles   *TileStore
	regions repository.RegionsRepository
	bus     *EventBus
	logger  *zap.Logger
	config  DownloaderConfig
	now     func() time.Time

	mu     sync.Mutex
	active map[string]*model.Region
}

// NewRegionDownloader は新しいRegionDownloaderインスタンスを作成
func NewRegionDownloader(
	fetcher TileFetcher,
	tiles *TileStore,
	regions repository.RegionsRepository,
	bus *EventBus,
	logger *zap.Logger,
	config DownloaderConfig,
) *RegionDownloader {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchDelay < 0 {
		config.BatchDelay = 0
	}
	return &RegionDownloader{
		fetcher: fetcher,
		tiles:   tiles,
		regions: regions,
		bus:     bus,
		logger:  logger,
		config:  config,
		now:     time.Now,
		active:  make(map[string]*model.Region),
	}
}

// Plan はダウンロード要求からタイル一覧と推定サイズを含む Region を作成する
func (d *RegionDownloader) Plan(req *model.RegionRequest) (*model.Region, []model.TileCoord, error) {
	if err := helper.ValidateRegionRequest(req); err != nil {
		return nil, nil, err
	}

	coords := helper.EnumerateTiles(req.Bounds, req.ZoomLevels)

	priority := req.Priority
	if priority == "" {
		priority = model.RegionPriorityMedium
	}

	region := &model.Region{
		ID:         fmt.Sprintf("region_%s", uuid.New().String()),
		Name:       req.Name,
		Bounds:     req.Bounds,
		ZoomLevels: append([]int(nil), req.ZoomLevels...),
		TileCount:  len(coords),
		SizeBytes:  int64(len(coords)) * model.EstimatedTileBytes,
		Priority:   priority,
		CreatedAt:  d.now(),
	}
	return region, coords, nil
}

// Download は地域を計画し、全タイルのダウンロードを完了まで実行する
func (d *RegionDownloader) Download(ctx context.Context, req *model.RegionRequest) (*model.Region, error) {
	region, coords, err := d.Plan(req)
	if err != nil {
		return nil, err
	}
	if err := d.Execute(ctx, region, coords); err != nil {
		return nil, err
	}
	return region, nil
}

// Execute はタイルをバッチごとに取得して保存する
// 個々のタイル取得失敗はバッチ内で吸収し、保存失敗などバッチから漏れたエラーのみ地域全体を失敗させる
func (d *RegionDownloader) Execute(ctx context.Context, region *model.Region, coords []model.TileCoord) error {
	d.track(region)
	defer d.untrack(region.ID)

	d.bus.Publish(model.DownloadStarted{Region: d.snapshot(region)})
	d.logger.Info("🚀 Region download started",
		zap.String("region_id", region.ID),
		zap.String("name", region.Name),
		zap.Int("tiles", len(coords)))
	start := time.Now()

	var downloaded, failed atomic.Int64
	total := len(coords)

	for offset := 0; offset < total; offset += d.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return d.fail(region, err)
		}

		end := min(offset+d.config.BatchSize, total)
		if err := d.runBatch(ctx, region.ID, coords[offset:end], &downloaded, &failed); err != nil {
			return d.fail(region, err)
		}

		progress := int(math.Round(float64(downloaded.Load()) / float64(total) * 100))
		d.setProgress(region, progress)
		d.bus.Publish(model.DownloadProgress{
			RegionID:   region.ID,
			Progress:   progress,
			Downloaded: int(downloaded.Load()),
			Failed:     int(failed.Load()),
			Total:      total,
		})

		if end < total && d.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return d.fail(region, ctx.Err())
			case <-time.After(d.config.BatchDelay):
			}
		}
	}

	// 失敗したタイルがあっても進捗は100として完了扱いになる（FailedTiles に件数を残す）
	completedAt := d.now()
	d.mu.Lock()
	region.Progress = 100
	region.DownloadedAt = &completedAt
	region.FailedTiles = int(failed.Load())
	d.mu.Unlock()

	if region.FailedTiles > 0 {
		d.logger.Warn("⚠️ Region completed with missing tiles",
			zap.String("region_id", region.ID),
			zap.Int("failed", region.FailedTiles),
			zap.Int("total", total))
	}

	if err := d.regions.Save(ctx, region); err != nil {
		return d.fail(region, fmt.Errorf("地域メタデータの保存に失敗: %w", err))
	}

	d.bus.Publish(model.DownloadCompleted{Region: d.snapshot(region)})
	d.logger.Info("✅ Region download completed",
		zap.String("region_id", region.ID),
		zap.Int64("downloaded", downloaded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// runBatch は1バッチ分のタイルを並行取得し、全リクエストの完了を待つ
func (d *RegionDownloader) runBatch(ctx context.Context, regionID string, batch []model.TileCoord, downloaded, failed *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.BatchSize)

	for _, coord := range batch {
		coord := coord
		g.Go(func() error {
			data, err := d.fetcher.FetchTile(gctx, coord)
			if err != nil {
				failed.Add(1)
				d.logger.Debug("tile fetch failed", zap.String("tile", coord.ID()), zap.Error(err))
				return nil
			}

			tile := model.NewTile(regionID, coord, data, d.now())
			if err := d.tiles.Put(gctx, tile); err != nil {
				return err
			}
			downloaded.Add(1)
			return nil
		})
	}
	return g.Wait()
}

func (d *RegionDownloader) fail(region *model.Region, err error) error {
	d.bus.Publish(model.DownloadFailed{RegionID: region.ID, Error: err.Error()})
	d.logger.Error("❌ Region download failed", zap.String("region_id", region.ID), zap.Error(err))
	return fmt.Errorf("地域 %s のダウンロードに失敗: %w", region.ID, err)
}

// Active はダウンロード中の地域のスナップショットを返す
func (d *RegionDownloader) Active() []model.Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Region, 0, len(d.active))
	for _, r := range d.active {
		out = append(out, *r)
	}
	return out
}

func (d *RegionDownloader) track(region *model.Region) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[region.ID] = region
}

func (d *RegionDownloader) untrack(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, id)
}

func (d *RegionDownloader) setProgress(region *model.Region, progress int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	region.Progress = progress
}

func (d *RegionDownloader) snapshot(region *model.Region) model.Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *region
}
