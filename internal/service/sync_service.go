package service

import (
	"context"
	"fmt"

	"bottarot-be/internal/model"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"
	pktNats "bottarot-be/pkg/nats"

	"github.com/google/uuid"
)

const (
	syncSubject = "events.auth.>"
	syncDurable = "auth-sync-worker"
)

// SyncDelivery pushes sync events to a user's open connections.
// Implemented by the websocket hub.
type SyncDelivery interface {
	Send(userID uuid.UUID, event model.SyncEvent)
}

// SessionDirectory reaches the live client sessions of a user on this instance.
type SessionDirectory interface {
	MarkRegistered(userID uuid.UUID) int
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// SyncService keeps the tabs and devices of one user in agreement about
// their auth state.
type SyncService struct {
	subscriber EventSubscriber
	delivery   SyncDelivery
	directory  SessionDirectory
	logger     logger.ILogger
}

func NewSyncService(sub EventSubscriber, delivery SyncDelivery, directory SessionDirectory, log logger.ILogger) *SyncService {
	return &SyncService{
		subscriber: sub,
		delivery:   delivery,
		directory:  directory,
		logger:     log,
	}
}

// Start begins consuming auth events with a durable consumer shared by all
// instances.
func (s *SyncService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, syncSubject, syncDurable, s.handleEvent); err != nil {
		return fmt.Errorf("start auth sync: %w", err)
	}
	s.logger.Info("SyncService", "Auth sync started", map[string]interface{}{"subject": syncSubject})
	return nil
}

func (s *SyncService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	rawID, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("SyncService", "Auth event without user id", map[string]interface{}{"type": event.EventType()})
		return nil
	}
	origin, _ := payload["client_id"].(string)

	if event.EventType() == events.TypeAuthProfileDone && s.directory != nil {
		n := s.directory.MarkRegistered(userID)
		s.logger.Debug("SyncService", "Marked sessions registered", map[string]interface{}{"user_id": userID, "sessions": n})
	}

	if s.delivery != nil {
		s.delivery.Send(userID, model.SyncEvent{
			Type:           event.EventType(),
			UserID:         userID,
			OriginClientID: origin,
			OccurredAt:     event.Timestamp(),
		})
	}
	return nil
}
