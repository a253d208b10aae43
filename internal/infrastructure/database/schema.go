package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Dialect SQL方言
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// スキーマはどちらの方言でも同じ列構成にする（時刻はUnixミリ秒、入れ子の値はJSON文字列）
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS tiles (
	id TEXT PRIMARY KEY,
	region_id TEXT NOT NULL,
	z INTEGER NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	data {{BLOB}} NOT NULL,
	size BIGINT NOT NULL,
	downloaded_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tiles_region ON tiles(region_id);

CREATE TABLE IF NOT EXISTS regions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	bounds TEXT NOT NULL,
	zoom_levels TEXT NOT NULL,
	tile_count INTEGER NOT NULL,
	size_bytes BIGINT NOT NULL,
	progress INTEGER NOT NULL,
	downloaded_at BIGINT,
	priority TEXT NOT NULL,
	failed_tiles INTEGER NOT NULL DEFAULT 0,
	created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_locations_type ON locations(type);

CREATE TABLE IF NOT EXISTS routes (
	id TEXT PRIMARY KEY,
	route_type TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_type ON routes(route_type);
`

// Schema は方言ごとのDDLを返す
func Schema(dialect Dialect) string {
	blob := "BLOB"
	if dialect == DialectPostgres {
		blob = "BYTEA"
	}
	return strings.ReplaceAll(schemaTemplate, "{{BLOB}}", blob)
}

func applySchema(db *sql.DB, dialect Dialect) error {
	for _, stmt := range strings.Split(Schema(dialect), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("スキーマの適用に失敗: %w", err)
		}
	}
	return nil
}
