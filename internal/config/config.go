package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"EmergencyMap-App/internal/domain/model"
)

// ストレージドライバ
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config はアプリケーション全体の設定
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	StorageDriver string
	SQLitePath    string
	DatabaseURL   string

	TileProvider   string
	TileBaseURL    string
	TileBatchSize  int
	TileBatchDelay time.Duration

	CacheRetention  time.Duration
	CleanupInterval time.Duration

	ConnectivityProbeURL      string
	ConnectivityProbeInterval time.Duration

	FirestoreProjectID string
	SupabaseURL        string
	SupabaseAnonKey    string
}

// Load は .env を読み込んでから環境変数で設定を組み立てる
// .env が無い場合はシステムの環境変数のみを使う
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv は環境変数から設定を作成する
func FromEnv() (*Config, error) {
	batchSize, err := intEnv("TILE_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	batchDelayMS, err := intEnv("TILE_BATCH_DELAY_MS", 100)
	if err != nil {
		return nil, err
	}
	retentionDays, err := intEnv("CACHE_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := durationEnv("CLEANUP_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	probeInterval, err := durationEnv("CONNECTIVITY_PROBE_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                      stringEnv("PORT", "8080"),
		AppEnv:                    stringEnv("APP_ENV", "production"),
		LogLevel:                  os.Getenv("LOG_LEVEL"),
		StorageDriver:             stringEnv("STORAGE_DRIVER", StorageSQLite),
		SQLitePath:                stringEnv("SQLITE_PATH", "data/emergency-map.db"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		TileProvider:              stringEnv("TILE_PROVIDER", "osm"),
		TileBaseURL:               os.Getenv("TILE_BASE_URL"),
		TileBatchSize:             batchSize,
		TileBatchDelay:            time.Duration(batchDelayMS) * time.Millisecond,
		CacheRetention:            time.Duration(retentionDays) * 24 * time.Hour,
		CleanupInterval:           cleanupInterval,
		ConnectivityProbeURL:      os.Getenv("CONNECTIVITY_PROBE_URL"),
		ConnectivityProbeInterval: probeInterval,
		FirestoreProjectID:        os.Getenv("FIRESTORE_PROJECT_ID"),
		SupabaseURL:               os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:           os.Getenv("SUPABASE_ANON_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の組み合わせをチェックする
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATHが設定されていません")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres ではDATABASE_URLが必須です")
		}
	default:
		return fmt.Errorf("未対応のSTORAGE_DRIVERです: %s", c.StorageDriver)
	}
	if c.TileBatchSize <= 0 {
		return fmt.Errorf("TILE_BATCH_SIZEは1以上を指定してください")
	}
	if c.TileBatchDelay < 0 {
		return fmt.Errorf("TILE_BATCH_DELAY_MSは0以上を指定してください")
	}
	if c.CacheRetention <= 0 {
		return fmt.Errorf("CACHE_RETENTION_DAYSは1以上を指定してください")
	}
	return nil
}

// RegionPresets 一括ダウンロード用の地域定義ファイル
type RegionPresets struct {
	Regions []model.RegionRequest `yaml:"regions"`
}

// LoadRegionPresets はYAMLファイルから地域定義を読み込む
func LoadRegionPresets(path string) ([]model.RegionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("地域定義ファイルの読み込みに失敗: %w", err)
	}

	var presets RegionPresets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("地域定義ファイルのパースに失敗: %w", err)
	}
	for i := range presets.Regions {
		if presets.Regions[i].Priority == "" {
			presets.Regions[i].Priority = model.RegionPriorityMedium
		}
	}
	return presets.Regions, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%sは整数で指定してください: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%sは時間（例: 24h）で指定してください: %w", key, err)
	}
	return d, nil
}
