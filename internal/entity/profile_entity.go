package entity

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	Id          uuid.UUID
	Email       string
	Name        string
	Gender      string
	DateOfBirth *time.Time
	Timezone    string
	Language    string
	CreatedAt   time.Time
}
