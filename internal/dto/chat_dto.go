package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatSummaryResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"max=200"`
}
