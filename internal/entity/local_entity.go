package entity

import "time"

type GeoFix struct {
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
