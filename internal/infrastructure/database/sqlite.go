package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteClient 端末内に保存する組み込みSQLiteクライアント
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLiteClient 指定パスのSQLiteデータベースを開き、スキーマを適用する
func NewSQLiteClient(path string) (*SQLiteClient, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATHが設定されていません")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	// 書き込みは1接続に直列化する
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}

	if err := applySchema(db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteClient{DB: db}, nil
}

// Close データベース接続を閉じる
func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (c *SQLiteClient) HealthCheck() error {
	if c.DB == nil {
		return fmt.Errorf("SQLiteクライアントが初期化されていません")
	}
	return c.DB.Ping()
}
