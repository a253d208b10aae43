package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

type SQLRoutesRepository struct {
	db *sql.DB
}

func NewSQLRoutesRepository(db *sql.DB) repository.RoutesRepository {
	return &SQLRoutesRepository{db: db}
}

func (r *SQLRoutesRepository) Upsert(ctx context.Context, route *model.OfflineRoute) error {
	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("ルートJSONマーシャルエラー: %w", err)
	}

	query := `
		INSERT INTO routes (id, route_type, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET route_type = excluded.route_type, payload = excluded.payload
	`
	if _, err := r.db.ExecContext(ctx, query, route.ID, route.RouteType, string(payload)); err != nil {
		return fmt.Errorf("ルート %s の保存失敗: %w", route.ID, err)
	}
	return nil
}

func (r *SQLRoutesRepository) GetAll(ctx context.Context) ([]*model.OfflineRoute, error) {
	return r.query(ctx, `SELECT payload FROM routes`)
}

func (r *SQLRoutesRepository) GetByType(ctx context.Context, routeType string) ([]*model.OfflineRoute, error) {
	return r.query(ctx, `SELECT payload FROM routes WHERE route_type = $1`, routeType)
}

func (r *SQLRoutesRepository) query(ctx context.Context, query string, args ...any) ([]*model.OfflineRoute, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ルートの検索失敗: %w", err)
	}
	defer rows.Close()

	var routes []*model.OfflineRoute
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ルートデータスキャンエラー: %w", err)
		}
		var route model.OfflineRoute
		if err := json.Unmarshal([]byte(payload), &route); err != nil {
			return nil, fmt.Errorf("ルートJSONパースエラー: %w", err)
		}
		routes = append(routes, &route)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}
	return routes, nil
}
