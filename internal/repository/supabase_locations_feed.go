package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
	"EmergencyMap-App/internal/infrastructure/database"
)

// supabaseLocationRow emergency_locations テーブルの行（緯度経度は別カラム）
type supabaseLocationRow struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Address          string  `json:"address"`
	Phone            string  `json:"phone"`
	Website          string  `json:"website"`
	IsOperational    bool    `json:"is_operational"`
	Has24HourService bool    `json:"has_24_hour_service"`
	Capacity         int     `json:"capacity"`
	Priority         int     `json:"priority"`
	LastUpdated      string  `json:"last_updated"`
}

// ToEmergencyLocation 行をドメインモデルに変換
func (r *supabaseLocationRow) ToEmergencyLocation() *model.EmergencyLocation {
	location := &model.EmergencyLocation{
		ID:               r.ID,
		Name:             r.Name,
		Type:             r.Type,
		Location:         model.LatLng{Lat: r.Lat, Lng: r.Lng},
		Address:          r.Address,
		Phone:            r.Phone,
		Website:          r.Website,
		IsOperational:    r.IsOperational,
		Has24HourService: r.Has24HourService,
		Capacity:         r.Capacity,
		Priority:         r.Priority,
	}
	if t, err := time.Parse(time.RFC3339, r.LastUpdated); err == nil {
		location.LastUpdated = t.UTC()
	}
	return location
}

type SupabaseLocationsFeed struct {
	client *database.SupabaseClient
}

func NewSupabaseLocationsFeed(client *database.SupabaseClient) repository.LocationFeed {
	return &SupabaseLocationsFeed{
		client: client,
	}
}

// FetchLocations 種別を指定すると絞り込み、空文字なら全件取得
func (f *SupabaseLocationsFeed) FetchLocations(ctx context.Context, locationType string) ([]*model.EmergencyLocation, error) {
	query := f.client.GetClient().From("emergency_locations").Select("*", "exact", false)
	if locationType != "" {
		query = query.Eq("type", locationType)
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("緊急施設データの取得失敗: %w", err)
	}

	return decodeLocationRows(data)
}

func decodeLocationRows(data []byte) ([]*model.EmergencyLocation, error) {
	var rows []supabaseLocationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("緊急施設データのJSONアンマーシャル失敗: %w", err)
	}

	locations := make([]*model.EmergencyLocation, 0, len(rows))
	for i := range rows {
		locations = append(locations, rows[i].ToEmergencyLocation())
	}
	return locations, nil
}
