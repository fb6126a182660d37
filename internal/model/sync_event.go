package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncEvent is pushed to every open tab of a user when their auth state
// changed somewhere else.
type SyncEvent struct {
	Type           string    `json:"type"`
	UserID         uuid.UUID `json:"user_id"`
	OriginClientID string    `json:"origin_client_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
