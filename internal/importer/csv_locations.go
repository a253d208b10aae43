package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jszwec/csvutil"

	"EmergencyMap-App/internal/domain/model"
)

// locationRecord 緊急施設CSVの1行（ヘッダー名とタグが一致している必要がある）
type locationRecord struct {
	ID               string  `csv:"id"`
	Name             string  `csv:"name"`
	Type             string  `csv:"type"`
	Lat              float64 `csv:"lat"`
	Lng              float64 `csv:"lng"`
	Address          string  `csv:"address,omitempty"`
	Phone            string  `csv:"phone,omitempty"`
	Website          string  `csv:"website,omitempty"`
	IsOperational    bool    `csv:"is_operational,omitempty"`
	Has24HourService bool    `csv:"has_24_hour_service,omitempty"`
	Capacity         int     `csv:"capacity,omitempty"`
	Priority         int     `csv:"priority"`
	LastUpdated      string  `csv:"last_updated,omitempty"`
}

func (r *locationRecord) toModel(importedAt time.Time) (*model.EmergencyLocation, error) {
	lastUpdated := importedAt
	if r.LastUpdated != "" {
		t, err := time.Parse(time.RFC3339, r.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("施設 %s のlast_updatedが不正です: %w", r.ID, err)
		}
		lastUpdated = t.UTC()
	}

	return &model.EmergencyLocation{
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
		LastUpdated:      lastUpdated,
	}, nil
}

// ParseLocationsCSV はヘッダー付きCSVを緊急施設の一覧に変換する
// last_updated が空の行は importedAt を更新時刻とする
func ParseLocationsCSV(reader io.Reader, importedAt time.Time) ([]*model.EmergencyLocation, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for locations: %w", err)
	}

	var records []locationRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode locations CSV data: %w", err)
	}

	locations := make([]*model.EmergencyLocation, 0, len(records))
	for i := range records {
		location, err := records[i].toModel(importedAt)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, nil
}
