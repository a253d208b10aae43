package model

import "time"

// 緊急施設の種別
const (
	LocationTypeHospital        = "hospital"
	LocationTypeFireStation     = "fire_station"
	LocationTypePoliceStation   = "police_station"
	LocationTypeShelter         = "shelter"
	LocationTypePharmacy        = "pharmacy"
	LocationTypeEvacuationPoint = "evacuation_point"
	LocationTypeWaterStation    = "water_station"
)

// 優先度の範囲
const (
	MinLocationPriority = 1
	MaxLocationPriority = 10
)

// EmergencyLocation 病院・避難所などの緊急施設
type EmergencyLocation struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Location         LatLng    `json:"location"`
	Address          string    `json:"address,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Website          string    `json:"website,omitempty"`
	IsOperational    bool      `json:"is_operational"`
	Has24HourService bool      `json:"has_24_hour_service"`
	Capacity         int       `json:"capacity,omitempty"`
	Priority         int       `json:"priority"`
	LastUpdated      time.Time `json:"last_updated"`
}

// LocationQuery 緊急施設の検索条件
type LocationQuery struct {
	Type         string  `json:"type,omitempty"`
	Near         *LatLng `json:"near,omitempty"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}

// IsValidLocationType 既知の施設種別かチェック
func IsValidLocationType(t string) bool {
	switch t {
	case LocationTypeHospital, LocationTypeFireStation, LocationTypePoliceStation,
		LocationTypeShelter, LocationTypePharmacy, LocationTypeEvacuationPoint, LocationTypeWaterStation:
		return true
	}
	return false
}
