package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Gender      string `json:"gender" validate:"omitempty,max=30"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Timezone    string `json:"timezone" validate:"omitempty,timezone"`
	Language    string `json:"language" validate:"omitempty,oneof=es en it pt fr"`
}

type ProfileResponse struct {
	Id          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Language    string    `json:"language,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type PersonalContextResponse struct {
	HasProfile   bool     `json:"has_profile"`
	Context      string   `json:"context"`
	Greeting     string   `json:"greeting"`
	Summary      string   `json:"summary"`
	SpecialDates []string `json:"special_dates"`
}
