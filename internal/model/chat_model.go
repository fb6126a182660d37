package model

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a stored conversation. The list view reads it through get_chat_list.
type Chat struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Title      string    `gorm:"type:text;not null;default:'Nueva lectura'"`
	IsFavorite bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Chat) TableName() string {
	return "chats"
}
