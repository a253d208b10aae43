package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EmergencyMap-App/internal/domain/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "STORAGE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
		"TILE_PROVIDER", "TILE_BASE_URL", "TILE_BATCH_SIZE", "TILE_BATCH_DELAY_MS",
		"CACHE_RETENTION_DAYS", "CLEANUP_INTERVAL", "CONNECTIVITY_PROBE_URL", "CONNECTIVITY_PROBE_INTERVAL",
		"FIRESTORE_PROJECT_ID", "SUPABASE_URL", "SUPABASE_ANON_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, "osm", cfg.TileProvider)
	assert.Equal(t, 10, cfg.TileBatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.TileBatchDelay)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheRetention)
	assert.Equal(t, 24*time.Hour, cfg.CleanupInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TILE_BATCH_SIZE", "4")
	t.Setenv("TILE_BATCH_DELAY_MS", "0")
	t.Setenv("CACHE_RETENTION_DAYS", "7")
	t.Setenv("CLEANUP_INTERVAL", "1h")
	t.Setenv("STORAGE_DRIVER", StoragePostgres)
	t.Setenv("DATABASE_URL", "postgres://localhost/emergency")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.TileBatchSize)
	assert.Equal(t, time.Duration(0), cfg.TileBatchDelay)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheRetention)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"整数でないバッチサイズ", map[string]string{"TILE_BATCH_SIZE": "ten"}},
		{"ゼロのバッチサイズ", map[string]string{"TILE_BATCH_SIZE": "0"}},
		{"不正な間隔", map[string]string{"CLEANUP_INTERVAL": "daily"}},
		{"URLなしのpostgres", map[string]string{"STORAGE_DRIVER": StoragePostgres}},
		{"未知のドライバ", map[string]string{"STORAGE_DRIVER": "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PORT")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRegionPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	yamlData := `
regions:
  - name: 京都市中心部
    bounds: {north: 35.03, south: 34.98, east: 135.79, west: 135.74}
    zoom_levels: [12, 13, 14]
    priority: high
  - name: 嵐山
    bounds: {north: 35.02, south: 35.00, east: 135.69, west: 135.66}
    zoom_levels: [13]
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))

	regions, err := LoadRegionPresets(path)
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "京都市中心部", regions[0].Name)
	assert.Equal(t, model.Bounds{North: 35.03, South: 34.98, East: 135.79, West: 135.74}, regions[0].Bounds)
	assert.Equal(t, []int{12, 13, 14}, regions[0].ZoomLevels)
	assert.Equal(t, model.RegionPriorityHigh, regions[0].Priority)
	assert.Equal(t, model.RegionPriorityMedium, regions[1].Priority)

	_, err = LoadRegionPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
