package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

type SQLLocationsRepository struct {
	db *sql.DB
}

func NewSQLLocationsRepository(db *sql.DB) repository.LocationsRepository {
	return &SQLLocationsRepository{db: db}
}

func (r *SQLLocationsRepository) Upsert(ctx context.Context, location *model.EmergencyLocation) error {
	payload, err := json.Marshal(location)
	if err != nil {
		return fmt.Errorf("緊急施設JSONマーシャルエラー: %w", err)
	}

	query := `
		INSERT INTO locations (id, type, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET type = excluded.type, payload = excluded.payload
	`
	if _, err := r.db.ExecContext(ctx, query, location.ID, location.Type, string(payload)); err != nil {
		return fmt.Errorf("緊急施設 %s の保存失敗: %w", location.ID, err)
	}
	return nil
}

func (r *SQLLocationsRepository) GetAll(ctx context.Context) ([]*model.EmergencyLocation, error) {
	return r.query(ctx, `SELECT payload FROM locations`)
}

func (r *SQLLocationsRepository) GetByType(ctx context.Context, locationType string) ([]*model.EmergencyLocation, error) {
	return r.query(ctx, `SELECT payload FROM locations WHERE type = $1`, locationType)
}

func (r *SQLLocationsRepository) query(ctx context.Context, query string, args ...any) ([]*model.EmergencyLocation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("緊急施設の検索失敗: %w", err)
	}
	defer rows.Close()

	var locations []*model.EmergencyLocation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("緊急施設データスキャンエラー: %w", err)
		}
		var l model.EmergencyLocation
		if err := json.Unmarshal([]byte(payload), &l); err != nil {
			return nil, fmt.Errorf("緊急施設JSONパースエラー: %w", err)
		}
		locations = append(locations, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}
	return locations, nil
}
