package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSummary struct {
	Id         uuid.UUID
	Title      string
	IsFavorite bool
	CreatedAt  time.Time
}
