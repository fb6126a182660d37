package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatSummary is one row returned by the get_chat_list RPC.
type ChatSummary struct {
	Id         uuid.UUID `gorm:"column:id"`
	Title      string    `gorm:"column:title"`
	IsFavorite bool      `gorm:"column:is_favorite"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}
