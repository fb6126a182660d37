package dto

type LanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

type LanguageResponse struct {
	Language string `json:"language"`
}

type GeolocationRequest struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" validate:"longitude"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0"`
}
