package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

// TileStore 永続化されたタイルのメモリ上インデックスとキャッシュサイズを管理する
// totalSize は常に保持中タイルのサイズ合計と一致する
type TileStore struct {
	repo   repository.TilesRepository
	logger *zap.Logger

	// writeMu は永続化とインデックス更新を1つの操作として直列化する
	writeMu sync.Mutex

	mu        sync.RWMutex
	loaded    bool
	tiles     map[string]*model.Tile
	totalSize int64
}

// NewTileStore は新しいTileStoreインスタンスを作成
func NewTileStore(repo repository.TilesRepository, logger *zap.Logger) *TileStore {
	return &TileStore{
		repo:   repo,
		logger: logger,
		tiles:  make(map[string]*model.Tile),
	}
}

// Load は永続化済みの全タイルを読み込み、キャッシュサイズを再計算する
func (s *TileStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return model.ErrStorageUnavailable
	}

	tiles, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("タイルの読み込みに失敗: %w", err)
	}

	index := make(map[string]*model.Tile, len(tiles))
	var total int64
	for _, t := range tiles {
		index[t.ID] = t
		total += t.Size
	}

	s.mu.Lock()
	s.tiles = index
	s.totalSize = total
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("📦 Tile cache loaded", zap.Int("tiles", len(index)), zap.Int64("bytes", total))
	return nil
}

// Put はタイルを永続化してインデックスに追加する
func (s *TileStore) Put(ctx context.Context, tile *model.Tile) error {
	if !s.isLoaded() {
		return model.ErrStorageUnavailable
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Put(ctx, tile); err != nil {
		return fmt.Errorf("タイル %s の保存に失敗: %w", tile.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tiles[tile.ID]; ok {
		s.totalSize -= old.Size
	}
	s.tiles[tile.ID] = tile
	s.totalSize += tile.Size
	return nil
}

// Get はタイルを取得する
func (s *TileStore) Get(z, x, y int) (*model.Tile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiles[model.TileID(z, x, y)]
	return t, ok
}

// Delete はタイルを削除し、解放したバイト数を返す
func (s *TileStore) Delete(ctx context.Context, id string) (int64, error) {
	if !s.isLoaded() {
		return 0, model.ErrStorageUnavailable
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteLocked(ctx, id)
}

// DeleteIfOlder はタイルが cutoff より前にダウンロードされたものである場合のみ削除する
// 判定と削除の間に同じIDで再保存されたタイルは削除しない
func (s *TileStore) DeleteIfOlder(ctx context.Context, id string, cutoff time.Time) (int64, bool, error) {
	if !s.isLoaded() {
		return 0, false, model.ErrStorageUnavailable
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current, ok := s.tiles[id]
	s.mu.RUnlock()
	if !ok || !current.DownloadedAt.Before(cutoff) {
		return 0, false, nil
	}

	freed, err := s.deleteLocked(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return freed, true, nil
}

func (s *TileStore) deleteLocked(ctx context.Context, id string) (int64, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return 0, fmt.Errorf("タイル %s の削除に失敗: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tiles[id]
	if !ok {
		return 0, nil
	}
	delete(s.tiles, id)
	s.totalSize -= old.Size
	return old.Size, nil
}

// DeleteByRegion は地域に属するタイルを全て削除する
func (s *TileStore) DeleteByRegion(ctx context.Context, regionID string) (int, error) {
	if !s.isLoaded() {
		return 0, model.ErrStorageUnavailable
	}

	ids, err := s.repo.GetIDsByRegion(ctx, regionID)
	if err != nil {
		return 0, fmt.Errorf("地域 %s のタイル一覧取得に失敗: %w", regionID, err)
	}

	for _, id := range ids {
		if _, err := s.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// All は保持中タイルのスナップショットを返す
func (s *TileStore) All() []*model.Tile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Tile, 0, len(s.tiles))
	for _, t := range s.tiles {
		out = append(out, t)
	}
	return out
}

// TotalSize はキャッシュ中の合計バイト数
func (s *TileStore) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSize
}

// Count はキャッシュ中のタイル数
func (s *TileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

func (s *TileStore) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
