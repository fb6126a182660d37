package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile mirrors the Supabase "profiles" relation. The id is the auth user id.
type Profile struct {
	Id          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email       string          `gorm:"type:text"`
	Name        string          `gorm:"type:text"`
	Gender      string          `gorm:"type:text"`
	DateOfBirth *datatypes.Date `gorm:"column:date_of_birth"`
	Timezone    string          `gorm:"type:text"`
	Language    string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
