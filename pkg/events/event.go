package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the dotted code for this event (e.g., "auth.signed_in").
	// Publishers prefix it with "events." to build the NATS subject.
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Auth events are fanned out to every tab and device of the same user.
const (
	TypeAuthSignedIn       = "auth.signed_in"
	TypeAuthSignedOut      = "auth.signed_out"
	TypeAuthTokenRefreshed = "auth.token_refreshed"
	TypeAuthProfileDone    = "auth.profile_completed"
)

// Analytics events only land on the stream.
const (
	TypeAnalyticsLogin         = "analytics.login"
	TypeAnalyticsSignUp        = "analytics.sign_up"
	TypeAnalyticsLogout        = "analytics.logout"
	TypeAnalyticsReading       = "analytics.reading_recorded"
	TypeAnalyticsQuestion      = "analytics.question_recorded"
	TypeAnalyticsLanguage      = "analytics.language_changed"
	TypeAnalyticsGeolocation   = "analytics.geolocation_granted"
	TypeAnalyticsProfileFilled = "analytics.profile_completed"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewUserEvent stamps the user and client ids into the payload so
// subscribers can route the event without a lookup.
func NewUserEvent(eventType string, userID uuid.UUID, clientID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+3)
	for k, v := range data {
		payload[k] = v
	}
	if userID != uuid.Nil {
		payload["user_id"] = userID.String()
	}
	if clientID != "" {
		payload["client_id"] = clientID
	}
	now := time.Now().UTC()
	payload["occurred_at"] = now.Format(time.RFC3339Nano)

	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: now,
	}
}
